package crtex

import "testing"

func TestInstantiateExpandsLeafNameMarker(t *testing.T) {
	c := NewTemplate(LeafNameMarker)
	result, err := Instantiate(c, "Lcom/example/Foo;.bar:()V", "Lcom/example/Foo;", "bar", nil, DefaultMarkerResolver{})
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	value, ok := result.InstantiatedValue()
	if !ok || value != "Lcom/example/Foo;.bar:()V" {
		t.Fatalf("expected the leaf name marker to expand to the method signature, got %q (ok=%v)", value, ok)
	}
}

func TestInstantiateExpandsBloksMarkerForActionClass(t *testing.T) {
	c := NewTemplate(BloksMarker)
	result, err := Instantiate(c, "sig", "Lcom/example/LoginAction;", "onSubmitPhoneNumber", nil, DefaultMarkerResolver{})
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	value, _ := result.InstantiatedValue()
	want := "Login:on_submit_phone_number"
	if value != want {
		t.Fatalf("expected %q, got %q", want, value)
	}
}

func TestInstantiateLeavesBloksMarkerForNonMatchingClass(t *testing.T) {
	c := NewTemplate(BloksMarker)
	result, err := Instantiate(c, "sig", "Lcom/example/Helper;", "doStuff", nil, DefaultMarkerResolver{})
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	value, _ := result.InstantiatedValue()
	if value != BloksMarker {
		t.Fatalf("expected the unmatched marker to be left untouched, got %q", value)
	}
}

func TestInstantiateExpandsGraphQLRootMarker(t *testing.T) {
	c := NewTemplate(GraphQLRootMarker)
	result, err := Instantiate(c, "sig", "Lcom/example/SomeMutationData;", "setPhoneField", nil, DefaultMarkerResolver{})
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	value, _ := result.InstantiatedValue()
	want := "some_mutation:phone_field"
	if value != want {
		t.Fatalf("expected %q, got %q", want, value)
	}
}

func TestInstantiateExpandsViaTypeOfMarkerWithExactlyOneFeature(t *testing.T) {
	c := NewTemplate("foo:" + ViaTypeOfMarker)
	result, err := Instantiate(c, "sig", "Lcom/example/Foo;", "bar", []string{"java.lang.String"}, DefaultMarkerResolver{})
	if err != nil {
		t.Fatalf("Instantiate: %v", err)
	}
	value, _ := result.InstantiatedValue()
	want := "foo:java.lang.String"
	if value != want {
		t.Fatalf("expected %q, got %q", want, value)
	}
}

func TestInstantiateFailsOnZeroViaTypeOfFeatures(t *testing.T) {
	c := NewTemplate("foo:" + ViaTypeOfMarker)
	_, err := Instantiate(c, "sig", "Lcom/example/Foo;", "bar", nil, DefaultMarkerResolver{})
	if err == nil {
		t.Fatalf("expected an error when no via-type-of feature is available")
	}
}

func TestInstantiateFailsOnAmbiguousViaTypeOfFeatures(t *testing.T) {
	c := NewTemplate("foo:" + ViaTypeOfMarker)
	_, err := Instantiate(c, "sig", "Lcom/example/Foo;", "bar", []string{"A", "B"}, DefaultMarkerResolver{})
	if err == nil {
		t.Fatalf("expected an error when more than one via-type-of feature is available")
	}
}

func TestInstantiateRejectsAlreadyInstantiatedName(t *testing.T) {
	c := NewInstantiated("already:done")
	_, err := Instantiate(c, "sig", "Lcom/example/Foo;", "bar", nil, DefaultMarkerResolver{})
	if err == nil {
		t.Fatalf("expected Instantiate to reject a non-template canonical name")
	}
}

func TestToLowerUnderscoreConvertsCamelCase(t *testing.T) {
	if got := toLowerUnderscore("onSubmitPhoneNumber"); got != "on_submit_phone_number" {
		t.Fatalf("expected on_submit_phone_number, got %q", got)
	}
}
