package ytdlp

import "testing"

func TestArtistName(t *testing.T) {
	tests := []struct {
		name string
		song Song
		want string
	}{
		{
			name: "artists list",
			song: Song{Artists: []string{"A", "B"}, Artist: "C", Channel: "D"},
			want: "A, B",
		},
		{
			name: "single artist",
			song: Song{Artist: "C", Channel: "D"},
			want: "C",
		},
		{
			name: "channel fallback",
			song: Song{Channel: "D"},
			want: "D",
		},
		{
			name: "empty",
			song: Song{},
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.song.ArtistName(); got != tt.want {
				t.Errorf("ArtistName() = %q; want %q", got, tt.want)
			}
		})
	}
}
