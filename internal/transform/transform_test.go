// SPDX-License-Identifier: MPL-2.0

package transform

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"testing"

	"github.com/modbridge/modbridge/internal/testutil"
	"github.com/modbridge/modbridge/pkg/accesswidener"
	"github.com/modbridge/modbridge/pkg/classfile"
	"github.com/modbridge/modbridge/pkg/mapping"
	"github.com/modbridge/modbridge/pkg/modmeta"
)

const (
	entityOld = "net/minecraft/class_1"
	entityNew = "net/minecraft/world/Entity"
)

func testTable(t *testing.T) *mapping.Table {
	t.Helper()
	tree := mapping.NewTree(mapping.Intermediary, mapping.Srg)
	tree.AddClass(entityOld, entityNew).
		AddField("I", "field_1", "f_1_").
		AddMethod("()V", "method_1", "m_1_")
	tree.AddClass("a/Foo", "b/Foo")
	table, err := mapping.NewBuilder(tree).Build(mapping.Intermediary, mapping.Srg)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return table
}

func renameOnly(table *mapping.Table) *Pipeline {
	return Rename(NewClassRenamer(table, nil)).Configs(nil).Refmaps(nil).Widen(nil).Provenance(nil)
}

func sampleEntries(t *testing.T) []testutil.JarEntry {
	t.Helper()
	return []testutil.JarEntry{
		testutil.File("META-INF/MANIFEST.MF", "Manifest-Version: 1.0\n"),
		{Name: "net/"},
		testutil.NewClass(t, entityOld).
			Field(classfile.AccPrivate, "field_1", "I").
			Method(classfile.AccPublic, "method_1", "()V").
			Entry(),
		testutil.NewClass(t, "com/example/Mod").
			FieldRef(entityOld, "field_1", "I").
			MethodRef(entityOld, "method_1", "()V").
			Entry(),
		testutil.File("assets/examplemod/lang/en_us.json", `{"item.examplemod.thing": "Thing"}`),
	}
}

func entryNames(entries []testutil.JarEntry) []string {
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name
	}
	return names
}

func TestPipeline_Stages(t *testing.T) {
	t.Parallel()

	p := Rename(nil).Configs(nil).Refmaps(nil).Widen(nil).Provenance(nil)
	want := []Stage{StageRename, StageConfigs, StageRefmaps, StageWiden, StageProvenance}
	if got := p.Stages(); !slices.Equal(got, want) {
		t.Errorf("Stages() = %v, want %v", got, want)
	}
}

func TestPipeline_Run_RenamesClasses(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	input := testutil.WriteJar(t, filepath.Join(dir, "in", "mod.jar"), sampleEntries(t)...)
	output := filepath.Join(dir, "mod_mapped.jar")

	if err := renameOnly(testTable(t)).Run(input, output); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	out := testutil.ReadJar(t, output)
	want := []string{
		"META-INF/MANIFEST.MF",
		"net/",
		entityNew + ".class",
		"com/example/Mod.class",
		"assets/examplemod/lang/en_us.json",
	}
	if got := entryNames(out); !slices.Equal(got, want) {
		t.Fatalf("entries = %v, want %v", got, want)
	}

	entity := testutil.ParseClass(t, testutil.JarEntryData(t, out, entityNew+".class"))
	if name, _ := entity.Name(); name != entityNew {
		t.Errorf("class name = %q, want %q", name, entityNew)
	}
	if entity.FindField("f_1_", "I") == nil || entity.FindMethod("m_1_", "()V") == nil {
		t.Error("members were not renamed")
	}

	mod := testutil.JarEntryData(t, out, "com/example/Mod.class")
	for _, s := range []string{entityNew, "f_1_", "m_1_"} {
		if !bytes.Contains(mod, []byte(s)) {
			t.Errorf("Mod.class does not reference %q", s)
		}
	}
	lang := testutil.JarEntryData(t, out, "assets/examplemod/lang/en_us.json")
	if string(lang) != `{"item.examplemod.thing": "Thing"}` {
		t.Errorf("unrelated entry changed: %s", lang)
	}
}

func TestPipeline_Run_OutputMode(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" {
		t.Skip("no unix permission bits on windows")
	}

	dir := t.TempDir()
	input := testutil.WriteJar(t, filepath.Join(dir, "in.jar"), sampleEntries(t)...)
	output := filepath.Join(dir, "out.jar")
	if err := renameOnly(testTable(t)).Run(input, output); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	info, err := os.Stat(output)
	if err != nil {
		t.Fatal(err)
	}
	// A plain 0644 file shows what the process umask leaves.
	ref := filepath.Join(dir, "ref")
	if err := os.WriteFile(ref, nil, outputPerm); err != nil {
		t.Fatal(err)
	}
	refInfo, err := os.Stat(ref)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := info.Mode().Perm(), refInfo.Mode().Perm(); got != want {
		t.Errorf("output mode = %v, want %v", got, want)
	}
}

func TestPipeline_Run_Deterministic(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	input := testutil.WriteJar(t, filepath.Join(dir, "mod.jar"), sampleEntries(t)...)
	table := testTable(t)

	var outputs [2][]byte
	for i := range outputs {
		output := filepath.Join(dir, "out", string(rune('a'+i))+".jar")
		testutil.MustMkdirAll(t, filepath.Dir(output), 0o755)
		p := Rename(NewClassRenamer(table, nil)).
			Configs(nil).
			Refmaps(nil).
			Widen(nil).
			Provenance(NewProvenanceGenerator("examplemod"))
		if err := p.Run(input, output); err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		data, err := os.ReadFile(output)
		if err != nil {
			t.Fatal(err)
		}
		outputs[i] = data
	}
	if !bytes.Equal(outputs[0], outputs[1]) {
		t.Error("two runs over the same input produced different archives")
	}
}

func TestPipeline_Run_Idempotent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	input := testutil.WriteJar(t, filepath.Join(dir, "mod.jar"), sampleEntries(t)...)
	table := testTable(t)

	first := filepath.Join(dir, "first.jar")
	second := filepath.Join(dir, "second.jar")
	if err := renameOnly(table).Run(input, first); err != nil {
		t.Fatalf("first Run() error = %v", err)
	}
	if err := renameOnly(table).Run(first, second); err != nil {
		t.Fatalf("second Run() error = %v", err)
	}

	a, b := testutil.ReadJar(t, first), testutil.ReadJar(t, second)
	if !slices.Equal(entryNames(a), entryNames(b)) {
		t.Fatalf("entries differ: %v vs %v", entryNames(a), entryNames(b))
	}
	for i := range a {
		if !bytes.Equal(a[i].Data, b[i].Data) {
			t.Errorf("entry %s changed on the second run", a[i].Name)
		}
	}
}

func TestPipeline_Run_FailureLeavesNoOutput(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	input := testutil.WriteJar(t, filepath.Join(dir, "in", "mod.jar"), sampleEntries(t)...)
	outDir := filepath.Join(dir, "out")
	testutil.MustMkdirAll(t, outDir, 0o755)
	output := filepath.Join(outDir, "mod.jar")

	boom := errors.New("boom")
	failing := TransformerFunc(func(e Entry) (Entry, error) {
		if strings.HasPrefix(e.Name, "assets/") {
			return e, boom
		}
		return e, nil
	})
	err := Rename(nil).Configs(failing).Refmaps(nil).Widen(nil).Provenance(nil).Run(input, output)
	if !errors.Is(err, ErrTransformFailed) || !errors.Is(err, boom) {
		t.Fatalf("Run() error = %v, want ErrTransformFailed wrapping the cause", err)
	}
	var stageErr *StageError
	if !errors.As(err, &stageErr) || stageErr.Stage != StageConfigs || stageErr.Entry != "assets/examplemod/lang/en_us.json" {
		t.Errorf("StageError = %+v", stageErr)
	}

	left, readErr := os.ReadDir(outDir)
	if readErr != nil {
		t.Fatal(readErr)
	}
	if len(left) != 0 {
		t.Errorf("output directory not empty after failure: %v", left)
	}
}

func TestPipeline_Run_RelocationCollision(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	input := testutil.WriteJar(t, filepath.Join(dir, "mod.jar"),
		testutil.NewClass(t, entityNew).Entry(),
		testutil.NewClass(t, entityOld).Entry(),
	)
	err := renameOnly(testTable(t)).Run(input, filepath.Join(dir, "out.jar"))
	if !errors.Is(err, ErrEntryCollision) {
		t.Fatalf("Run() error = %v, want ErrEntryCollision", err)
	}
	var stageErr *StageError
	if !errors.As(err, &stageErr) || stageErr.Stage != StageRename {
		t.Errorf("StageError = %+v, want rename stage", stageErr)
	}
}

func TestPipeline_Run_KeepsUnrelatedMembers(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	input := testutil.WriteJar(t, filepath.Join(dir, "mod.jar"),
		testutil.NewClass(t, "com/example/Other").
			Field(classfile.AccPrivate, "field_1", "I").
			Method(classfile.AccPublic, "method_1", "()V").
			Entry(),
		// Child is streamed before the Base it extends.
		testutil.NewClass(t, "com/example/Child").
			Extends("com/example/Base").
			Method(classfile.AccPublic, "method_1", "()V").
			Entry(),
		testutil.NewClass(t, "com/example/Base").
			Extends(entityOld).
			Entry(),
		testutil.NewClass(t, "com/example/Listener").
			Implements(entityOld).
			Method(classfile.AccPublic, "method_1", "()V").
			Entry(),
	)
	output := filepath.Join(dir, "out.jar")

	if err := renameOnly(testTable(t)).Run(input, output); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	out := testutil.ReadJar(t, output)

	other := testutil.JarEntryData(t, out, "com/example/Other.class")
	if !bytes.Equal(other, testutil.JarEntryData(t, testutil.ReadJar(t, input), "com/example/Other.class")) {
		t.Error("class outside the mapped hierarchy was rewritten")
	}
	for _, name := range []string{"com/example/Child", "com/example/Listener"} {
		cf := testutil.ParseClass(t, testutil.JarEntryData(t, out, name+".class"))
		if cf.FindMethod("m_1_", "()V") == nil {
			t.Errorf("%s: override of a mapped method was not renamed", name)
		}
	}
}

func TestClassRenamer_MultiReleaseAndServices(t *testing.T) {
	t.Parallel()

	r := NewClassRenamer(testTable(t), nil)

	versioned := testutil.NewClass(t, entityOld).Entry()
	e, err := r.Transform(Entry{Name: "META-INF/versions/17/" + versioned.Name, Data: versioned.Data})
	if err != nil {
		t.Fatal(err)
	}
	if want := "META-INF/versions/17/" + entityNew + ".class"; e.Name != want {
		t.Errorf("versioned name = %q, want %q", e.Name, want)
	}

	e, err = r.Transform(Entry{
		Name: "META-INF/services/net.minecraft.class_1",
		Data: []byte("# providers\nnet.minecraft.class_1 # self\ncom.example.Impl\n"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if e.Name != "META-INF/services/net.minecraft.world.Entity" {
		t.Errorf("service name = %q", e.Name)
	}
	if want := "# providers\nnet.minecraft.world.Entity # self\ncom.example.Impl\n"; string(e.Data) != want {
		t.Errorf("service content = %q, want %q", e.Data, want)
	}

	junk := Entry{Name: "data/readme.class", Data: []byte("not bytecode")}
	if got, err := r.Transform(junk); err != nil || got.Name != junk.Name {
		t.Errorf("non-class .class entry = %+v, %v", got, err)
	}
}

func TestMixinConfigRewriter(t *testing.T) {
	t.Parallel()

	meta := &modmeta.Metadata{PatchConfigs: []*modmeta.PatchConfig{
		{Path: "plain.mixins.json"},
		{Path: "pkg.mixins.json", Package: "com.example"},
	}}
	r := NewMixinConfigRewriter(meta, testTable(t), nil)

	tests := []struct {
		name string
		path string
		in   string
		want string
	}{
		{
			name: "rewrites lists in place",
			path: "plain.mixins.json",
			in:   "{\n  \"required\": true,\n  \"mixins\": [\"a.Foo\", \"Keep\"],\n  \"client\": [ \"a.Foo\" ],\n  \"injectors\": {\"defaultRequire\": 1}\n}\n",
			want: "{\n  \"required\": true,\n  \"mixins\": [\"b.Foo\",\"Keep\"],\n  \"client\": [\"b.Foo\"],\n  \"injectors\": {\"defaultRequire\": 1}\n}\n",
		},
		{
			name: "unmapped config is untouched",
			path: "plain.mixins.json",
			in:   "{\"mixins\": [ \"Keep\" ], \"server\": null}",
			want: "{\"mixins\": [ \"Keep\" ], \"server\": null}",
		},
		{
			name: "unmapped class in package is kept",
			path: "pkg.mixins.json",
			in:   `{"package": "com.example", "mixins": ["Other"]}`,
			want: `{"package": "com.example", "mixins": ["Other"]}`,
		},
		{
			name: "undeclared config is ignored",
			path: "other.json",
			in:   `{"mixins": ["a.Foo"]}`,
			want: `{"mixins": ["a.Foo"]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := r.Transform(Entry{Name: tt.path, Data: []byte(tt.in)})
			if err != nil {
				t.Fatalf("Transform() error = %v", err)
			}
			if string(got.Data) != tt.want {
				t.Errorf("Transform() = %q, want %q", got.Data, tt.want)
			}
		})
	}

	_, err := r.Transform(Entry{Name: "plain.mixins.json", Data: []byte(`{"mixins": "a.Foo"}`)})
	if !errors.Is(err, modmeta.ErrMalformedPatchConfig) {
		t.Errorf("Transform() error = %v, want ErrMalformedPatchConfig", err)
	}
}

func TestRefmapRewriter(t *testing.T) {
	t.Parallel()

	meta := &modmeta.Metadata{Refmaps: []string{"examplemod-refmap.json"}}
	r := NewRefmapRewriter(meta, mapping.NewReferenceMapper(testTable(t)))

	const mixin = "com/example/mixin/EntityMixin"
	in := `{
  "mappings": {"com/example/mixin/EntityMixin": {"tick": "Lnet/minecraft/class_1;method_1()V", "other": "Lcom/example/Unknown;run()V"}},
  "data": {"named:intermediary": {"com/example/mixin/EntityMixin": {"field": "Lnet/minecraft/class_1;field_1:I"}}}
}`
	e, err := r.Transform(Entry{Name: "examplemod-refmap.json", Data: []byte(in)})
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}

	var doc struct {
		Mappings map[string]map[string]string            `json:"mappings"`
		Data     map[string]map[string]map[string]string `json:"data"`
	}
	if err := json.Unmarshal(e.Data, &doc); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if got := doc.Mappings[mixin]["tick"]; got != "Lnet/minecraft/world/Entity;m_1_()V" {
		t.Errorf("mappings tick = %q", got)
	}
	if got := doc.Mappings[mixin]["other"]; got != "Lcom/example/Unknown;run()V" {
		t.Errorf("unmapped reference changed: %q", got)
	}
	if got := doc.Data["named:intermediary"][mixin]["field"]; got != "Lnet/minecraft/world/Entity;f_1_:I" {
		t.Errorf("data field = %q", got)
	}

	untouched := Entry{Name: "other-refmap.json", Data: []byte(in)}
	if got, _ := r.Transform(untouched); !bytes.Equal(got.Data, untouched.Data) {
		t.Error("undeclared refmap was rewritten")
	}
}

func TestAccessWidenerApplier(t *testing.T) {
	t.Parallel()

	file := &accesswidener.File{
		Version:   1,
		Namespace: mapping.Srg,
		Entries: []accesswidener.Entry{
			{Access: accesswidener.Accessible, Kind: accesswidener.KindClass, Owner: entityNew},
			{Access: accesswidener.Accessible, Kind: accesswidener.KindField, Owner: entityNew, Name: "f_1_", Desc: "I"},
			{Access: accesswidener.Mutable, Kind: accesswidener.KindField, Owner: entityNew, Name: "f_1_", Desc: "I"},
		},
	}
	a := NewAccessWidenerApplier("examplemod.accesswidener", file, nil)

	class := testutil.NewClass(t, entityNew).
		Access(classfile.AccSuper).
		Field(classfile.AccPrivate|classfile.AccFinal, "f_1_", "I").
		Entry()
	e, err := a.Transform(Entry{Name: class.Name, Data: class.Data})
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}
	cf := testutil.ParseClass(t, e.Data)
	if cf.Access&classfile.AccPublic == 0 {
		t.Errorf("class access = %#x, want public", cf.Access)
	}
	f := cf.FindField("f_1_", "I")
	if f == nil || f.Access&classfile.AccPublic == 0 || f.Access&classfile.AccFinal != 0 {
		t.Errorf("field access = %+v, want public non-final", f)
	}

	other := testutil.NewClass(t, "com/example/Mod").Entry()
	if got, _ := a.Transform(Entry{Name: other.Name, Data: other.Data}); !bytes.Equal(got.Data, other.Data) {
		t.Error("untargeted class was rewritten")
	}

	aw, err := a.Transform(Entry{Name: "examplemod.accesswidener", Data: []byte("stale")})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(aw.Data, file.Bytes()) {
		t.Errorf("access widener entry = %q, want %q", aw.Data, file.Bytes())
	}

	nop := NewAccessWidenerApplier("", nil, nil)
	if got, _ := nop.Transform(Entry{Name: class.Name, Data: class.Data}); !bytes.Equal(got.Data, class.Data) {
		t.Error("applier without a widener changed an entry")
	}
}

func TestProvenanceGenerator(t *testing.T) {
	t.Parallel()

	g := NewProvenanceGenerator("examplemod")
	extra, err := g.Finish()
	if err != nil {
		t.Fatal(err)
	}
	if len(extra) != 1 || extra[0].Name != PackMetadataPath || !extra[0].Modified.Equal(SyntheticTime) {
		t.Fatalf("Finish() = %+v", extra)
	}
	if !bytes.Contains(extra[0].Data, []byte(`"examplemod resources"`)) {
		t.Errorf("pack.mcmeta does not name the mod: %s", extra[0].Data)
	}

	g = NewProvenanceGenerator("examplemod")
	if _, err := g.Transform(Entry{Name: PackMetadataPath, Data: []byte("{}")}); err != nil {
		t.Fatal(err)
	}
	if extra, _ := g.Finish(); len(extra) != 0 {
		t.Errorf("Finish() with existing pack.mcmeta = %+v", extra)
	}
}
