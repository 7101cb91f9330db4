package util

import "testing"

func TestFileExtension(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{name: "photo.PNG", want: "png"},
		{name: "archive.tar.gz", want: "gz"},
		{name: "noext", want: "jpg"},
		{name: "trailing.", want: "jpg"},
		{name: "weird.p/ng", want: "jpg"},
		{name: "", want: "jpg"},
	}
	for _, tt := range tests {
		if got := FileExtension(tt.name, "jpg"); got != tt.want {
			t.Fatalf("FileExtension(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}
