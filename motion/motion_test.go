package motion

import "testing"

func TestRequestValidate(t *testing.T) {
	cases := []struct {
		name    string
		req     Request
		wantErr bool
	}{
		{"valid", Request{V0: 0, V: 10, A: 5, J: 50, S: 20}, false},
		{"negative V0", Request{V0: -1, V: 10, A: 5, J: 50, S: 20}, true},
		{"V not greater than V0", Request{V0: 5, V: 5, A: 5, J: 50, S: 20}, true},
		{"zero A", Request{V0: 0, V: 10, A: 0, J: 50, S: 20}, true},
		{"zero J", Request{V0: 0, V: 10, A: 5, J: 0, S: 20}, true},
		{"zero S", Request{V0: 0, V: 10, A: 5, J: 50, S: 0}, true},
		{"negative T", Request{V0: 0, V: 10, A: 5, J: 50, S: 20, T: -1}, true},
		{"zero T is allowed", Request{V0: 0, V: 10, A: 5, J: 50, S: 20, T: 0}, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := c.req.Validate()
			if (err != nil) != c.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, c.wantErr)
			}
		})
	}
}

func TestConstraintsUpdateRestoreA(t *testing.T) {
	c := NewConstraints(Request{V0: 0, V: 10, A: 5, J: 50, S: 20})
	c.UpdateA(2.5)
	if c.A != 2.5 {
		t.Fatalf("UpdateA: A = %v, want 2.5", c.A)
	}
	c.RestoreA()
	if c.A != 5 {
		t.Fatalf("RestoreA: A = %v, want 5", c.A)
	}
}

func TestConstraintsUpdateRestoreV(t *testing.T) {
	c := NewConstraints(Request{V0: 0, V: 10, A: 5, J: 50, S: 20})
	c.UpdateV(7)
	if c.V != 7 {
		t.Fatalf("UpdateV: V = %v, want 7", c.V)
	}
	c.RestoreV()
	if c.V != 10 {
		t.Fatalf("RestoreV: V = %v, want 10", c.V)
	}
}

func TestConstraintsUpdateOverwritesSavedValue(t *testing.T) {
	// UpdateA is documented as single-level undo: a second UpdateA
	// before a RestoreA overwrites the saved value, it doesn't stack.
	c := NewConstraints(Request{V0: 0, V: 10, A: 5, J: 50, S: 20})
	c.UpdateA(3)
	c.UpdateA(1)
	c.RestoreA()
	if c.A != 3 {
		t.Fatalf("RestoreA after two UpdateA calls: A = %v, want 3 (only one level of undo)", c.A)
	}
}
