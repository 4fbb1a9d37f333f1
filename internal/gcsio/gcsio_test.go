package gcsio

import "testing"

func TestParseURI(t *testing.T) {
	tests := []struct {
		uri     string
		bucket  string
		object  string
		wantErr bool
	}{
		{"gs://my-bucket/notas.csv", "my-bucket", "notas.csv", false},
		{"gs://my-bucket/2026/01/notas.csv", "my-bucket", "2026/01/notas.csv", false},
		{"gs://my-bucket", "", "", true},
		{"gs://my-bucket/", "", "", true},
		{"s3://my-bucket/notas.csv", "", "", true},
		{"/tmp/notas.csv", "", "", true},
		{"", "", "", true},
	}

	for _, tt := range tests {
		bucket, object, err := ParseURI(tt.uri)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseURI(%q): want error", tt.uri)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseURI(%q): %v", tt.uri, err)
			continue
		}
		if bucket != tt.bucket || object != tt.object {
			t.Errorf("ParseURI(%q) = %q, %q", tt.uri, bucket, object)
		}
	}
}

func TestIsURI(t *testing.T) {
	if !IsURI("gs://bucket/obj") {
		t.Error("gs:// should be a URI")
	}
	if IsURI("/var/data/notas.csv") {
		t.Error("local path is not a URI")
	}
}

func TestFilename(t *testing.T) {
	tests := []struct {
		uri  string
		want string
	}{
		{"gs://bucket/folder/notas.csv", "notas.csv"},
		{"gs://bucket/notas.csv", "notas.csv"},
		{"gs://bucket", "bucket"},
	}
	for _, tt := range tests {
		if got := Filename(tt.uri); got != tt.want {
			t.Errorf("Filename(%q) = %q, want %q", tt.uri, got, tt.want)
		}
	}
}
