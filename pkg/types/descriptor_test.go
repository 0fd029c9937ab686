package types

import (
	"errors"
	"testing"
)

func TestFieldDescriptorValidate(t *testing.T) {
	tests := []struct {
		name    string
		desc    FieldDescriptor
		wantErr error
	}{
		{
			name: "valid private single",
			desc: FieldDescriptor{Name: "count", Validator: "integer", Access: AccessPrivate},
		},
		{
			name: "valid public single",
			desc: FieldDescriptor{Name: "size", Validator: "float", Access: AccessPublic},
		},
		{
			name: "valid private multi",
			desc: FieldDescriptor{Name: "indices", Validator: "integer", Multi: true, Access: AccessPrivate},
		},
		{
			name:    "empty name",
			desc:    FieldDescriptor{Validator: "integer", Access: AccessPrivate},
			wantErr: ErrConfiguration,
		},
		{
			name:    "empty validator",
			desc:    FieldDescriptor{Name: "count", Access: AccessPrivate},
			wantErr: ErrUnknownValidator,
		},
		{
			name:    "bad access",
			desc:    FieldDescriptor{Name: "count", Validator: "integer", Access: "protected"},
			wantErr: ErrConfiguration,
		},
		{
			name:    "public multi",
			desc:    FieldDescriptor{Name: "indices", Validator: "integer", Multi: true, Access: AccessPublic},
			wantErr: ErrConfiguration,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.desc.Validate()
			if tt.wantErr == nil && err != nil {
				t.Fatalf("Validate() = %v, want nil", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("Validate() = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestDecodeSchemaRoundTrip(t *testing.T) {
	d := FieldDescriptor{
		Name:      "up_axis",
		Validator: "enum",
		Access:    AccessPrivate,
		Params:    map[string]any{"choices": []any{"X", "Y", "Z"}},
	}
	blob := map[string]any{"up_axis": d.SchemaEntry()}

	got, err := DecodeSchema(blob)
	if err != nil {
		t.Fatalf("DecodeSchema() error = %v", err)
	}
	entry, ok := got["up_axis"]
	if !ok {
		t.Fatal("DecodeSchema() dropped the entry")
	}
	if entry.Validator != "enum" || entry.Access != AccessPrivate || entry.Multi {
		t.Errorf("DecodeSchema() = %+v, want enum/private/single", entry)
	}
	if entry.Params == nil {
		t.Fatal("DecodeSchema() dropped params")
	}
}

func TestDecodeSchemaMalformed(t *testing.T) {
	blob := map[string]any{
		"broken": map[string]any{"multi": false, "access": "private"},
	}
	if _, err := DecodeSchema(blob); !errors.Is(err, ErrUnknownValidator) {
		t.Errorf("DecodeSchema() = %v, want ErrUnknownValidator", err)
	}

	blob = map[string]any{
		"broken": map[string]any{"validator": "integer", "access": "sideways"},
	}
	if _, err := DecodeSchema(blob); !errors.Is(err, ErrConfiguration) {
		t.Errorf("DecodeSchema() = %v, want ErrConfiguration", err)
	}
}
