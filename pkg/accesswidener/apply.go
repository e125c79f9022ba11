// SPDX-License-Identifier: MPL-2.0

package accesswidener

import (
	"github.com/modbridge/modbridge/pkg/classfile"
)

type (
	// Widener applies the directives of a File to class files. It must be
	// built from a File in the namespace the class files use.
	Widener struct {
		classes map[string]classAccess
		methods map[string]map[string]memberAccess
		fields  map[string]map[string]memberAccess
	}

	classAccess struct {
		accessible bool
		extendable bool
	}

	memberAccess struct {
		accessible bool
		extendable bool
		mutable    bool
	}
)

// NewWidener indexes the directives of f.
func NewWidener(f *File) *Widener {
	w := &Widener{
		classes: make(map[string]classAccess),
		methods: make(map[string]map[string]memberAccess),
		fields:  make(map[string]map[string]memberAccess),
	}
	if f == nil {
		return w
	}
	for _, e := range f.Entries {
		ca := w.classes[e.Owner]
		switch e.Kind {
		case KindClass:
			ca.accessible = ca.accessible || e.Access == Accessible
			ca.extendable = ca.extendable || e.Access == Extendable
		case KindMethod:
			ma := member(w.methods, e.Owner, e.Name+e.Desc)
			switch e.Access {
			case Accessible:
				ma.accessible = true
				ca.accessible = true
			case Extendable:
				ma.extendable = true
				ca.extendable = true
			}
			w.methods[e.Owner][e.Name+e.Desc] = ma
		case KindField:
			fa := member(w.fields, e.Owner, e.Name+":"+e.Desc)
			switch e.Access {
			case Accessible:
				fa.accessible = true
				ca.accessible = true
			case Mutable:
				fa.mutable = true
			}
			w.fields[e.Owner][e.Name+":"+e.Desc] = fa
		}
		w.classes[e.Owner] = ca
	}
	return w
}

func member(m map[string]map[string]memberAccess, owner, key string) memberAccess {
	if m[owner] == nil {
		m[owner] = make(map[string]memberAccess)
	}
	return m[owner][key]
}

// Empty reports whether the widener has no directives.
func (w *Widener) Empty() bool {
	return len(w.classes) == 0
}

// Targets reports whether any directive names the class.
func (w *Widener) Targets(class string) bool {
	_, ok := w.classes[class]
	return ok
}

// Apply patches the access flags of cf and of its InnerClasses entries. It
// reports whether anything changed.
func (w *Widener) Apply(cf *classfile.ClassFile) (bool, error) {
	name, err := cf.Name()
	if err != nil {
		return false, err
	}
	changed := false
	iface := cf.Access&classfile.AccInterface != 0

	if ca, ok := w.classes[name]; ok {
		if flags := ca.apply(cf.Access); flags != cf.Access {
			cf.Access = flags
			changed = true
		}
	}
	for _, inner := range cf.InnerClassNames() {
		if ca, ok := w.classes[inner]; ok {
			changed = cf.UpdateInnerClassAccess(inner, ca.apply) || changed
		}
	}

	for i := range cf.Methods {
		m := &cf.Methods[i]
		mname, desc, err := cf.MemberSignature(m)
		if err != nil {
			return changed, err
		}
		ma, ok := w.methods[name][mname+desc]
		if !ok {
			continue
		}
		if flags := ma.applyMethod(m.Access, mname == "<init>", iface); flags != m.Access {
			m.Access = flags
			changed = true
		}
	}
	for i := range cf.Fields {
		f := &cf.Fields[i]
		fname, desc, err := cf.MemberSignature(f)
		if err != nil {
			return changed, err
		}
		fa, ok := w.fields[name][fname+":"+desc]
		if !ok {
			continue
		}
		if flags := fa.applyField(f.Access); flags != f.Access {
			f.Access = flags
			changed = true
		}
	}
	return changed, nil
}

func (ca classAccess) apply(flags uint16) uint16 {
	if ca.accessible || ca.extendable {
		flags = classfile.MakePublic(flags)
	}
	if ca.extendable {
		flags = classfile.RemoveFinal(flags)
	}
	return flags
}

// applyMethod widens a method declared in a class, or in an interface when
// iface is set.
func (ma memberAccess) applyMethod(flags uint16, constructor, iface bool) uint16 {
	if ma.accessible {
		wasPrivate := flags&classfile.AccPrivate != 0
		static := flags&classfile.AccStatic != 0
		flags = classfile.MakePublic(flags)
		// Formerly private instance methods of classes become final. Interface
		// methods cannot be final (JVMS 4.6) and static methods are not virtual.
		if wasPrivate && !constructor && !static && !iface && !ma.extendable {
			flags |= classfile.AccFinal
		}
	}
	if ma.extendable {
		flags = classfile.RemoveFinal(classfile.MakeProtected(flags))
	}
	return flags
}

func (ma memberAccess) applyField(flags uint16) uint16 {
	if ma.accessible {
		flags = classfile.MakePublic(flags)
	}
	if ma.mutable {
		flags = classfile.RemoveFinal(flags)
	}
	return flags
}
