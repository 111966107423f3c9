package whisper

import "testing"

func TestCleanPath(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"music/song.mp3", "music/song.mp3"},
		{"'music/song.mp3'", "music/song.mp3"},
		{`"music/song.mp3"`, "music/song.mp3"},
		{"& 'music/song.mp3'", "music/song.mp3"},
		{"  music/song.mp3  ", "music/song.mp3"},
		{"it''s here/file.txt", "it's here/file.txt"},
		{"music//nested/../song.mp3", "music/song.mp3"},
		{"", "."},
	}

	for _, tc := range cases {
		if got := CleanPath(tc.in); got != tc.want {
			t.Fatalf("CleanPath(%q): expected %q, got %q", tc.in, tc.want, got)
		}
	}
}
