package models

import "testing"

func TestKindForFilename(t *testing.T) {
	cases := []struct {
		name string
		want MediaKind
	}{
		{"photo.png", KindImage},
		{"photo.JPG", KindImage},
		{"banner.jpeg", KindImage},
		{"anim.gif", KindImage},
		{"old.bmp", KindImage},
		{"clip.mp4", KindVideo},
		{"clip.MOV", KindVideo},
		{"clip.avi", KindVideo},
		{"clip.mkv", KindVideo},
		{"clip.wmv", KindVideo},
	}

	for _, tc := range cases {
		kind, err := KindForFilename(tc.name)
		if err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if kind != tc.want {
			t.Fatalf("%s: expected %s, got %s", tc.name, tc.want, kind)
		}
	}
}

func TestKindForFilename_Rejects(t *testing.T) {
	for _, name := range []string{"notes.txt", "archive.zip", "noextension", "trailingdot."} {
		if _, err := KindForFilename(name); err == nil {
			t.Fatalf("%s: expected an error", name)
		}
	}
}
