package project

import "testing"

func TestScaled100Value(t *testing.T) {
	t.Parallel()

	cases := map[Scaled100]float64{
		50:  0.5,
		100: 1.0,
		0:   0,
		150: 1.5,
	}
	for in, want := range cases {
		if got := in.Value(); got != want {
			t.Errorf("Scaled100(%d).Value() = %v, want %v", in, got, want)
		}
	}
}

func TestValidateUnknownMember(t *testing.T) {
	t.Parallel()

	p := Project{
		Groups: []Group{
			{ID: "root", Members: []Member{{ID: "missing"}}},
		},
	}
	if err := Validate(p); err == nil {
		t.Fatal("expected error for unresolved member id")
	}
}

func TestValidateVoidMemberOK(t *testing.T) {
	t.Parallel()

	p := Project{
		Tracks: []Track{{ID: "t0"}},
		Groups: []Group{
			{ID: "root", Members: []Member{{Void: true}, {ID: "t0"}}},
		},
	}
	if err := Validate(p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateUnknownEffectKind(t *testing.T) {
	t.Parallel()

	p := Project{
		Tracks: []Track{{ID: "t0", AudioPipeline: []AudioEffect{{Kind: "reverb"}}}},
	}
	if err := Validate(p); err == nil {
		t.Fatal("expected error for unknown effect kind")
	}
}

func TestValidateCustomEffectPassthrough(t *testing.T) {
	t.Parallel()

	p := Project{
		Tracks: []Track{{ID: "t0", AudioPipeline: []AudioEffect{
			{Kind: EffectCustom, Params: map[string]any{"weird": true}},
		}}},
	}
	if err := Validate(p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRootExplicit(t *testing.T) {
	t.Parallel()

	p := Project{
		Groups:    []Group{{ID: "a"}, {ID: "b"}},
		RootGroup: "b",
	}
	g, ok := p.Root()
	if !ok || g.ID != "b" {
		t.Fatalf("Root() = %+v, %v, want b, true", g, ok)
	}
}

func TestRootDefaultsToFirst(t *testing.T) {
	t.Parallel()

	p := Project{Groups: []Group{{ID: "a"}, {ID: "b"}}}
	g, ok := p.Root()
	if !ok || g.ID != "a" {
		t.Fatalf("Root() = %+v, %v, want a, true", g, ok)
	}
}

func TestSourceConsumedScalesWithSpeed(t *testing.T) {
	t.Parallel()

	c := Clip{DurationMs: 10000, Speed: 200} // 2x speed
	if got, want := c.SourceConsumed(), 20.0; got != want {
		t.Errorf("SourceConsumed() = %v, want %v", got, want)
	}
}

func TestSourceConsumedDefaultSpeed(t *testing.T) {
	t.Parallel()

	c := Clip{DurationMs: 5000}
	if got, want := c.SourceConsumed(), 5.0; got != want {
		t.Errorf("SourceConsumed() = %v, want %v", got, want)
	}
}
