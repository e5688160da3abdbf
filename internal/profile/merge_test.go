package profile

import "testing"

func TestMergeMaps_ShallowMergeEveryLevel(t *testing.T) {
	dst := map[string]any{
		"a": "keep",
		"nested": map[string]any{
			"x": 1,
			"y": 2,
		},
	}
	src := map[string]any{
		"b": "new",
		"nested": map[string]any{
			"y": 3,
		},
	}

	merged := MergeMaps(dst, src)

	if merged["a"] != "keep" {
		t.Errorf("untouched key erased: %v", merged["a"])
	}
	if merged["b"] != "new" {
		t.Errorf("new key missing: %v", merged["b"])
	}
	nested := merged["nested"].(map[string]any)
	if nested["x"] != 1 {
		t.Errorf("untouched nested key erased: %v", nested["x"])
	}
	if nested["y"] != 3 {
		t.Errorf("nested key not overwritten: %v", nested["y"])
	}
}

func TestMergeMaps_ArraysReplacedWholly(t *testing.T) {
	dst := map[string]any{"tags": []any{"a", "b", "c"}}
	src := map[string]any{"tags": []any{"z"}}

	merged := MergeMaps(dst, src)

	tags := merged["tags"].([]any)
	if len(tags) != 1 || tags[0] != "z" {
		t.Errorf("arrays must be replaced wholly, got %v", tags)
	}
}

func TestMergePersonal_LeavesUntouchedFieldsIntact(t *testing.T) {
	current := Personal{
		Name:     "John Doe",
		Bio:      "old bio",
		Location: "Berlin",
		GitHub:   "johndoe",
		Avatar:   &AvatarRef{URL: "https://cdn/x.png", PublicID: "x"},
	}

	merged, err := mergePersonal(current, map[string]any{"bio": "new bio"})
	if err != nil {
		t.Fatalf("merge personal: %v", err)
	}

	if merged.Bio != "new bio" {
		t.Errorf("bio not updated: %q", merged.Bio)
	}
	if merged.Name != "John Doe" || merged.Location != "Berlin" || merged.GitHub != "johndoe" {
		t.Errorf("untouched personal fields clobbered: %+v", merged)
	}
	if merged.Avatar == nil || merged.Avatar.PublicID != "x" {
		t.Errorf("avatar slot must survive a personal merge: %+v", merged.Avatar)
	}
}

func TestMergePersonal_AvatarKeyIgnored(t *testing.T) {
	current := Personal{Name: "Jane", Avatar: &AvatarRef{PublicID: "real"}}

	merged, err := mergePersonal(current, map[string]any{
		"avatar": map[string]any{"publicId": "spoofed"},
		"name":   "Jane Q",
	})
	if err != nil {
		t.Fatalf("merge personal: %v", err)
	}

	if merged.Avatar.PublicID != "real" {
		t.Errorf("avatar slot must only change via the replacement protocol, got %+v", merged.Avatar)
	}
	if merged.Name != "Jane Q" {
		t.Errorf("name not merged: %q", merged.Name)
	}
}

func TestMergePersonal_DoesNotMutateCallerMap(t *testing.T) {
	updates := map[string]any{
		"avatar": map[string]any{"publicId": "spoofed"},
		"bio":    "new bio",
	}

	if _, err := mergePersonal(Personal{Name: "Jane"}, updates); err != nil {
		t.Fatalf("merge personal: %v", err)
	}

	// updates 归调用方所有，合并不得原地改写。
	if _, ok := updates["avatar"]; !ok {
		t.Error("caller map mutated: avatar key removed")
	}
	if len(updates) != 2 {
		t.Errorf("caller map changed shape: %v", updates)
	}
}
