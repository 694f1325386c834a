package mimepolicy

import (
	"encoding/json"
	"testing"

	"github.com/dl-alexandre/gdrv-ingest/internal/types"
	"github.com/dl-alexandre/gdrv-ingest/internal/utils"
	"github.com/stretchr/testify/assert"
)

func TestClassify_ExportTargets(t *testing.T) {
	for source, target := range ExportTargets {
		t.Run(source, func(t *testing.T) {
			d := Classify(source)
			assert.Equal(t, KindExport, d.Kind)
			assert.Equal(t, target.MimeType, d.TargetMime)
			assert.Equal(t, target.Extension, d.Extension)
			assert.True(t, d.Ingestible())
		})
	}
}

func TestClassify_AllowedBinary(t *testing.T) {
	for mimeType, ext := range AllowedBinary {
		t.Run(mimeType, func(t *testing.T) {
			d := Classify(mimeType)
			assert.Equal(t, KindBinary, d.Kind)
			assert.Equal(t, mimeType, d.TargetMime)
			assert.Equal(t, ext, d.Extension)
		})
	}
}

func TestClassify_Unsupported(t *testing.T) {
	tests := []string{
		"",
		"image/png",
		utils.MimeTypeFolder,
		utils.MimeTypeForm,
		"application/pdf; charset=binary",
	}

	for _, mimeType := range tests {
		d := Classify(mimeType)
		if d.Kind != KindUnsupported {
			t.Errorf("Classify(%q) = %v, want unsupported", mimeType, d.Kind)
		}
		if d.Extension != "" || d.TargetMime != "" {
			t.Errorf("Classify(%q) carried a target: %+v", mimeType, d)
		}
		if IsIngestible(mimeType) {
			t.Errorf("IsIngestible(%q) = true", mimeType)
		}
	}
}

func TestExportTablesDisjoint(t *testing.T) {
	for source := range ExportTargets {
		_, ok := AllowedBinary[source]
		assert.False(t, ok, "%s is in both tables", source)
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "export", KindExport.String())
	assert.Equal(t, "binary", KindBinary.String())
	assert.Equal(t, "unsupported", KindUnsupported.String())
}

func TestResolveMimeType(t *testing.T) {
	payload := func(v interface{}) json.RawMessage {
		data, err := json.Marshal(v)
		if err != nil {
			t.Fatalf("marshal payload: %v", err)
		}
		return data
	}

	tests := []struct {
		name   string
		row    *types.ChangeQueueRow
		want   string
		wantOK bool
	}{
		{
			name:   "stored column wins",
			row:    &types.ChangeQueueRow{MimeType: types.StringPtr("text/plain"), RawPayload: payload(map[string]interface{}{"file": map[string]interface{}{"mimeType": "application/pdf"}})},
			want:   "text/plain",
			wantOK: true,
		},
		{
			name:   "embedded file descriptor",
			row:    &types.ChangeQueueRow{RawPayload: payload(map[string]interface{}{"file": map[string]interface{}{"mimeType": utils.MimeTypeDocument}})},
			want:   utils.MimeTypeDocument,
			wantOK: true,
		},
		{
			name:   "blank stored column falls through",
			row:    &types.ChangeQueueRow{MimeType: types.StringPtr("  "), RawPayload: payload(map[string]interface{}{"file": map[string]interface{}{"mimeType": "text/csv"}})},
			want:   "text/csv",
			wantOK: true,
		},
		{
			name:   "top-level payload field",
			row:    &types.ChangeQueueRow{RawPayload: payload(map[string]interface{}{"mimeType": "application/json"})},
			want:   "application/json",
			wantOK: true,
		},
		{
			name: "nothing to resolve",
			row:  &types.ChangeQueueRow{RawPayload: payload(map[string]interface{}{"file": map[string]interface{}{"name": "x"}})},
		},
		{
			name: "malformed payload",
			row:  &types.ChangeQueueRow{RawPayload: json.RawMessage(`{not json`)},
		},
		{
			name: "nil row",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ResolveMimeType(tt.row)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
