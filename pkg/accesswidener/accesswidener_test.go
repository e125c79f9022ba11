// SPDX-License-Identifier: MPL-2.0

package accesswidener

import (
	"errors"
	"strings"
	"testing"

	"github.com/modbridge/modbridge/pkg/classfile"
	"github.com/modbridge/modbridge/pkg/mapping"
)

const sample = `accessWidener	v2	intermediary
# widen the block class
accessible	class	net/minecraft/class_1
extendable	method	net/minecraft/class_1	method_1	(Lnet/minecraft/class_2;)V
transitive-mutable	field	net/minecraft/class_1	field_1	I   # trailing comment
accessible   field   net/minecraft/class_1   field_1   I
`

func TestParse(t *testing.T) {
	t.Parallel()

	f, err := Parse(strings.NewReader(sample))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if f.Version != 2 || f.Namespace != mapping.Intermediary {
		t.Errorf("header = v%d %s", f.Version, f.Namespace)
	}
	if len(f.Entries) != 4 {
		t.Fatalf("len(Entries) = %d, want 4", len(f.Entries))
	}
	want := Entry{Access: Mutable, Transitive: true, Kind: KindField, Owner: "net/minecraft/class_1", Name: "field_1", Desc: "I"}
	if f.Entries[2] != want {
		t.Errorf("Entries[2] = %+v, want %+v", f.Entries[2], want)
	}
}

func TestParse_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"bad header", "accessWidener\tv1\n"},
		{"bad version", "accessWidener\tv9\tnamed\n"},
		{"transitive in v1", "accessWidener\tv1\tnamed\ntransitive-accessible\tclass\ta/B\n"},
		{"unknown access", "accessWidener\tv1\tnamed\nvisible\tclass\ta/B\n"},
		{"unknown kind", "accessWidener\tv1\tnamed\naccessible\tpackage\ta/B\n"},
		{"mutable class", "accessWidener\tv1\tnamed\nmutable\tclass\ta/B\n"},
		{"mutable method", "accessWidener\tv1\tnamed\nmutable\tmethod\ta/B\tm\t()V\n"},
		{"extendable field", "accessWidener\tv1\tnamed\nextendable\tfield\ta/B\tf\tI\n"},
		{"short method", "accessWidener\tv1\tnamed\naccessible\tmethod\ta/B\tm\n"},
		{"dotted class", "accessWidener\tv1\tnamed\naccessible\tclass\ta.B\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := Parse(strings.NewReader(tt.input)); !errors.Is(err, ErrMalformed) {
				t.Errorf("Parse() error = %v, want ErrMalformed", err)
			}
		})
	}
}

func TestFile_BytesRoundTrip(t *testing.T) {
	t.Parallel()

	f, err := ParseBytes([]byte(sample))
	if err != nil {
		t.Fatal(err)
	}
	again, err := ParseBytes(f.Bytes())
	if err != nil {
		t.Fatalf("ParseBytes(Bytes()) error = %v", err)
	}
	if string(again.Bytes()) != string(f.Bytes()) {
		t.Errorf("Bytes() not stable:\n%s\nvs\n%s", f.Bytes(), again.Bytes())
	}
	if !strings.HasPrefix(string(f.Bytes()), "accessWidener\tv2\tintermediary\n") {
		t.Errorf("unexpected header in %q", f.Bytes())
	}
}

func TestFile_Remap(t *testing.T) {
	t.Parallel()

	tree := mapping.NewTree(mapping.Intermediary, mapping.Srg)
	tree.AddClass("net/minecraft/class_1", "net/minecraft/world/Block").
		AddMethod("(Lnet/minecraft/class_2;)V", "method_1", "m_1_").
		AddField("I", "field_1", "f_1_")
	tree.AddClass("net/minecraft/class_2", "net/minecraft/world/Level")
	table, err := mapping.NewBuilder(tree).Build(mapping.Intermediary, mapping.Srg)
	if err != nil {
		t.Fatal(err)
	}

	f, err := ParseBytes([]byte(sample))
	if err != nil {
		t.Fatal(err)
	}
	out := f.Remap(table)
	if out.Namespace != mapping.Srg {
		t.Errorf("Namespace = %s, want srg", out.Namespace)
	}
	want := []string{
		"accessible\tclass\tnet/minecraft/world/Block",
		"extendable\tmethod\tnet/minecraft/world/Block\tm_1_\t(Lnet/minecraft/world/Level;)V",
		"transitive-mutable\tfield\tnet/minecraft/world/Block\tf_1_\tI",
		"accessible\tfield\tnet/minecraft/world/Block\tf_1_\tI",
	}
	for i, w := range want {
		if got := out.Entries[i].String(); got != w {
			t.Errorf("Entries[%d] = %q, want %q", i, got, w)
		}
	}
	// The source file is not modified.
	if f.Entries[0].Owner != "net/minecraft/class_1" {
		t.Error("Remap() mutated the receiver")
	}
}

func TestWidener_Apply(t *testing.T) {
	t.Parallel()

	cf, err := classfile.New("a/Target", "java/lang/Object", classfile.AccFinal)
	if err != nil {
		t.Fatal(err)
	}
	mustAdd := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}
	mustAdd(cf.AddMethod(classfile.AccPrivate, "hidden", "()V"))
	mustAdd(cf.AddMethod(classfile.AccPrivate|classfile.AccFinal, "sealed", "(I)V"))
	mustAdd(cf.AddMethod(classfile.AccPrivate, "<init>", "()V"))
	mustAdd(cf.AddField(classfile.AccPrivate|classfile.AccFinal, "value", "I"))
	mustAdd(cf.AddMethod(classfile.AccPrivate, "untouched", "()V"))

	f, err := ParseBytes([]byte(`accessWidener	v1	named
extendable	class	a/Target
accessible	method	a/Target	hidden	()V
extendable	method	a/Target	sealed	(I)V
accessible	method	a/Target	<init>	()V
accessible	field	a/Target	value	I
mutable	field	a/Target	value	I
`))
	if err != nil {
		t.Fatal(err)
	}
	w := NewWidener(f)
	if !w.Targets("a/Target") || w.Targets("a/Other") {
		t.Error("Targets() mismatch")
	}

	changed, err := w.Apply(cf)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if !changed {
		t.Fatal("Apply() reported no change")
	}

	if cf.Access != classfile.AccPublic {
		t.Errorf("class access = 0x%04x, want public non-final", cf.Access)
	}
	tests := []struct {
		name  string
		field bool
		desc  string
		want  uint16
	}{
		{"hidden", false, "()V", classfile.AccPublic | classfile.AccFinal},
		{"sealed", false, "(I)V", classfile.AccProtected},
		{"<init>", false, "()V", classfile.AccPublic},
		{"value", true, "I", classfile.AccPublic},
		{"untouched", false, "()V", classfile.AccPrivate},
	}
	for _, tt := range tests {
		m := cf.FindMethod(tt.name, tt.desc)
		if tt.field {
			m = cf.FindField(tt.name, tt.desc)
		}
		if m == nil {
			t.Fatalf("%s not found", tt.name)
		}
		if m.Access != tt.want {
			t.Errorf("%s access = 0x%04x, want 0x%04x", tt.name, m.Access, tt.want)
		}
	}

	again, err := w.Apply(cf)
	if err != nil || again {
		t.Errorf("second Apply() = %v, %v; want no change", again, err)
	}
}

func TestWidener_ApplyNeverFinalizes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		class  uint16
		method uint16
		want   uint16
	}{
		{"interface method", classfile.AccInterface | classfile.AccAbstract, classfile.AccPrivate, classfile.AccPublic},
		{"static method", 0, classfile.AccPrivate | classfile.AccStatic, classfile.AccPublic | classfile.AccStatic},
		{"interface static method", classfile.AccInterface | classfile.AccAbstract, classfile.AccPrivate | classfile.AccStatic, classfile.AccPublic | classfile.AccStatic},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cf, err := classfile.New("a/Iface", "java/lang/Object", tt.class)
			if err != nil {
				t.Fatal(err)
			}
			if err := cf.AddMethod(tt.method, "helper", "()V"); err != nil {
				t.Fatal(err)
			}
			f, err := ParseBytes([]byte("accessWidener\tv1\tnamed\naccessible\tmethod\ta/Iface\thelper\t()V\n"))
			if err != nil {
				t.Fatal(err)
			}

			if _, err := NewWidener(f).Apply(cf); err != nil {
				t.Fatalf("Apply() error = %v", err)
			}
			m := cf.FindMethod("helper", "()V")
			if m == nil {
				t.Fatal("helper not found")
			}
			if m.Access != tt.want {
				t.Errorf("helper access = 0x%04x, want 0x%04x", m.Access, tt.want)
			}
		})
	}
}
