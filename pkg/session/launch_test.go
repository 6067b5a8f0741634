package session

import (
	"testing"

	"github.com/DeBrosOfficial/hdsview/pkg/errors"
)

func TestParseLaunchFragment(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "handler fragment", input: "#!/ext%2Bhds%3Adir.example.org", want: "dir.example.org"},
		{name: "escaped port", input: "#!/ext%2Bhds%3Adir.example.org%3A8443", want: "dir.example.org:8443"},
		{name: "page url", input: "http://localhost:8090/#!/ext%2Bhds%3A10.0.0.5", want: "10.0.0.5"},
		{name: "bare link", input: "ext+hds:dir.example.org", want: "dir.example.org"},
		{name: "slashes", input: "ext+hds://dir.example.org/", want: "dir.example.org"},
		{name: "scheme case", input: "EXT+HDS:dir", want: "dir"},
		{name: "nested scheme", input: "#!/ext%2Bhds%3Ahttps%3A%2F%2Fdir%3A27012", want: "https://dir:27012"},
		{name: "empty", input: "", wantErr: true},
		{name: "no host", input: "#!/ext%2Bhds%3A", wantErr: true},
		{name: "other scheme", input: "#!/mailto%3Ax", wantErr: true},
		{name: "bad escape", input: "#!/ext%2Bhds%3A%zz", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLaunchFragment(tt.input)
			if tt.wantErr {
				if !errors.IsValidation(err) {
					t.Fatalf("expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}
