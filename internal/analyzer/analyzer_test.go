// # internal/analyzer/analyzer_test.go
package analyzer

import (
	"reflect"
	"testing"
)

func mustProcess(t *testing.T, a *Analyzer, path, source string) {
	t.Helper()
	if err := a.ProcessFile(path, []byte(source)); err != nil {
		t.Fatalf("ProcessFile(%s): %v", path, err)
	}
}

func TestParser_ExtractsPackageImportsAndTypes(t *testing.T) {
	p := NewParser()
	file, err := p.Parse("A.java", []byte(`
package com.acme;

import com.acme.util.Lists;
import com.acme.other.*;
import static com.acme.K.VALUE;

public class A {
    private Lists lists;

    static class Inner {
        B b;
    }
}
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if file.Package != "com.acme" {
		t.Errorf("Package = %q, want com.acme", file.Package)
	}
	if len(file.Imports) != 3 {
		t.Fatalf("Imports = %+v, want 3 entries", file.Imports)
	}
	if file.Imports[0].Path != "com.acme.util.Lists" || file.Imports[0].Wildcard {
		t.Errorf("first import = %+v", file.Imports[0])
	}
	if file.Imports[1].Path != "com.acme.other" || !file.Imports[1].Wildcard {
		t.Errorf("wildcard import = %+v", file.Imports[1])
	}
	if !file.Imports[2].Static {
		t.Errorf("static import = %+v", file.Imports[2])
	}

	if len(file.Types) != 2 {
		t.Fatalf("Types = %+v, want A and A$Inner", file.Types)
	}
	if file.Types[0].Name != "A" || file.Types[1].Name != "A$Inner" {
		t.Errorf("type names = %q, %q", file.Types[0].Name, file.Types[1].Name)
	}
	if got := file.FQN(file.Types[1]); got != "com.acme.A$Inner" {
		t.Errorf("FQN = %q", got)
	}

	if !containsRef(file.Types[0].References, "Lists") {
		t.Errorf("A references = %v, want Lists", file.Types[0].References)
	}
	if !containsRef(file.Types[1].References, "B") {
		t.Errorf("A$Inner references = %v, want B", file.Types[1].References)
	}
	if containsRef(file.Types[0].References, "B") {
		t.Errorf("reference B leaked from the nested type to A: %v", file.Types[0].References)
	}
}

func TestParser_AccessibleConstants(t *testing.T) {
	cases := []struct {
		name   string
		source string
		want   bool
	}{
		{
			"public static final literal",
			`class A { public static final int MAX = 10; }`,
			true,
		},
		{
			"private constant is not accessible",
			`class A { private static final int MAX = 10; }`,
			false,
		},
		{
			"non-final is not a constant",
			`class A { public static int counter = 0; }`,
			false,
		},
		{
			"computed initializer is not inlined",
			`class A { public static final int MAX = compute(); }`,
			false,
		},
		{
			"interface fields are implicit constants",
			`interface A { int MAX = 10; }`,
			true,
		},
		{
			"string constant",
			`class A { static final String NAME = "x"; }`,
			true,
		},
	}

	p := NewParser()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			file, err := p.Parse("A.java", []byte(tc.source))
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if len(file.Types) == 0 {
				t.Fatal("no types parsed")
			}
			if file.Types[0].HasAccessibleConstants != tc.want {
				t.Errorf("HasAccessibleConstants = %v, want %v", file.Types[0].HasAccessibleConstants, tc.want)
			}
		})
	}
}

func TestParser_Annotations(t *testing.T) {
	p := NewParser()
	file, err := p.Parse("A.java", []byte(`
package com.acme;

@AutoValue
@Component(scope = "app")
class A {}
`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(file.Types) != 1 {
		t.Fatalf("Types = %+v", file.Types)
	}
	anns := file.Types[0].Annotations
	if len(anns) != 2 || anns[0] != "AutoValue" || anns[1] != "Component" {
		t.Errorf("Annotations = %v", anns)
	}
}

func TestResolve_SamePackageAndImports(t *testing.T) {
	a := New(nil)
	mustProcess(t, a, "A.java", `
package com.acme;
import com.acme.util.Helper;
class A { Helper h; B b; }
`)
	mustProcess(t, a, "B.java", `
package com.acme;
class B {}
`)
	mustProcess(t, a, "Helper.java", `
package com.acme.util;
public class Helper {}
`)

	snap := a.Resolve()

	helperDeps := snap.Graph.RelevantDependentsOf("com.acme.util.Helper")
	if !helperDeps.Contains("com.acme.A") {
		t.Errorf("Helper dependents = %v, want com.acme.A", helperDeps.DependentClasses())
	}
	bDeps := snap.Graph.RelevantDependentsOf("com.acme.B")
	if !bDeps.Contains("com.acme.A") {
		t.Errorf("B dependents = %v, want com.acme.A", bDeps.DependentClasses())
	}
}

func TestResolve_WildcardImport(t *testing.T) {
	a := New(nil)
	mustProcess(t, a, "A.java", `
package com.acme;
import com.acme.util.*;
class A { Helper h; }
`)
	mustProcess(t, a, "Helper.java", `
package com.acme.util;
public class Helper {}
`)

	snap := a.Resolve()
	got := snap.Graph.RelevantDependentsOf("com.acme.util.Helper")
	if !got.Contains("com.acme.A") {
		t.Errorf("Helper dependents = %v, want com.acme.A", got.DependentClasses())
	}
}

func TestResolve_ExternalReferencesIgnored(t *testing.T) {
	a := New(nil)
	mustProcess(t, a, "A.java", `
package com.acme;
import java.util.List;
class A { List l; String s; }
`)

	snap := a.Resolve()
	if snap.Graph.ClassCount() != 1 {
		t.Errorf("ClassCount = %d, want only com.acme.A", snap.Graph.ClassCount())
	}
	if snap.Graph.EdgeCount() != 0 {
		t.Errorf("EdgeCount = %d, want 0 (JDK references are external)", snap.Graph.EdgeCount())
	}
}

func TestResolve_UnboundedAnnotation(t *testing.T) {
	a := New([]string{"AutoValue"})
	mustProcess(t, a, "A.java", `
package com.acme;
@AutoValue
class A {}
`)

	snap := a.Resolve()
	if !snap.Graph.RelevantDependentsOf("com.acme.A").UnboundedImpact() {
		t.Error("annotated class should have unbounded impact")
	}
}

func TestResolve_ConstantsMakeClassUnbounded(t *testing.T) {
	a := New(nil)
	mustProcess(t, a, "K.java", `
package com.acme;
public class K { public static final int LIMIT = 5; }
`)

	snap := a.Resolve()
	if !snap.Graph.RelevantDependentsOf("com.acme.K").UnboundedImpact() {
		t.Error("constant-bearing class should have unbounded impact")
	}
}

func TestResolve_TrackedDependentsOfUnboundedClassSurvive(t *testing.T) {
	a := New(nil)
	mustProcess(t, a, "X.java", `
package com.acme;
public class X {}
`)
	mustProcess(t, a, "K.java", `
package com.acme;
public class K {
    public static final int LIMIT = 5;
    X x;
}
`)
	mustProcess(t, a, "C.java", `
package com.acme;
public class C { K k; }
`)

	snap := a.Resolve()
	// K's constants make it unbounded, but the tracked edge K -> C still
	// counts: changing X ripples through K to C.
	got := snap.Graph.RelevantDependentsOf("com.acme.X")
	if got.UnboundedImpact() {
		t.Fatal("X must stay bounded; only a root's own flag is unbounded")
	}
	want := []string{"com.acme.C", "com.acme.K"}
	if !reflect.DeepEqual(got.DependentClasses(), want) {
		t.Errorf("X dependents = %v, want %v", got.DependentClasses(), want)
	}
}

func TestResolve_NestedTypeTransparent(t *testing.T) {
	a := New(nil)
	mustProcess(t, a, "Outer.java", `
package com.acme;
class Outer {
    static class Inner { Leaf leaf; }
}
`)
	mustProcess(t, a, "User.java", `
package com.acme;
class User { Outer.Inner i; Inner direct; }
`)
	mustProcess(t, a, "Leaf.java", `
package com.acme;
class Leaf {}
`)

	snap := a.Resolve()
	// Leaf is referenced from inside Outer$Inner; Leaf's relevant dependents
	// must not surface the nested name itself.
	got := snap.Graph.RelevantDependentsOf("com.acme.Leaf")
	if got.UnboundedImpact() {
		t.Fatal("unexpected unbounded result")
	}
	for _, name := range got.DependentClasses() {
		if name == "com.acme.Outer$Inner" {
			t.Errorf("nested type leaked into the result: %v", got.DependentClasses())
		}
	}
}

func TestResolve_ReplacesStaleParse(t *testing.T) {
	a := New(nil)
	mustProcess(t, a, "A.java", `
package com.acme;
class A { B b; }
`)
	mustProcess(t, a, "B.java", `
package com.acme;
class B {}
`)

	// A stops referencing B.
	mustProcess(t, a, "A.java", `
package com.acme;
class A {}
`)

	snap := a.Resolve()
	got := snap.Graph.RelevantDependentsOf("com.acme.B")
	if got.Size() != 0 {
		t.Errorf("stale edge survived re-parse: %v", got.DependentClasses())
	}
}

func TestResolve_RemoveFile(t *testing.T) {
	a := New(nil)
	mustProcess(t, a, "A.java", `package com.acme; class A {}`)
	a.RemoveFile("A.java")

	snap := a.Resolve()
	if snap.Graph.ClassCount() != 0 {
		t.Errorf("ClassCount = %d after removal", snap.Graph.ClassCount())
	}
	if a.FileCount() != 0 {
		t.Errorf("FileCount = %d after removal", a.FileCount())
	}
}

func TestResolve_FileClassMapping(t *testing.T) {
	a := New(nil)
	mustProcess(t, a, "Outer.java", `
package com.acme;
class Outer { static class Inner {} }
`)

	snap := a.Resolve()
	classes := snap.ClassesByFile["Outer.java"]
	if len(classes) != 2 || classes[0] != "com.acme.Outer" || classes[1] != "com.acme.Outer$Inner" {
		t.Errorf("ClassesByFile = %v", classes)
	}
	if snap.FilesByClass["com.acme.Outer$Inner"] != "Outer.java" {
		t.Errorf("FilesByClass = %v", snap.FilesByClass)
	}
}

func containsRef(refs []string, want string) bool {
	for _, r := range refs {
		if r == want {
			return true
		}
	}
	return false
}
