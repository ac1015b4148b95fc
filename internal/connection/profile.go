package connection

import (
	"os"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// ProfileFile is the on-disk form of connection profiles:
//
//	[profiles.lab]
//	nutanix_host = "10.0.0.10"
//	nutanix_username = "admin"
//	validate_certs = false
type ProfileFile struct {
	Default  string                    `toml:"default"`
	Profiles map[string]map[string]any `toml:"profiles"`
}

// LoadProfile reads filename and returns the named profile's parameters. An
// empty name selects the file's default profile; an empty filename yields no
// profile at all.
func LoadProfile(filename, name string) (map[string]any, error) {
	if filename == "" {
		return nil, nil
	}
	content, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) && name == "" {
			return nil, nil
		}
		return nil, ErrProfile.MsgErr("error reading profile file "+filename, err)
	}

	var pf ProfileFile
	if _, err := toml.Decode(string(content), &pf); err != nil {
		return nil, ErrProfile.MsgErr("error parsing profile file "+filename, err)
	}
	if name == "" {
		name = pf.Default
	}
	if name == "" {
		return nil, nil
	}
	p, ok := pf.Profiles[name]
	if !ok {
		return nil, ErrProfile.Msg("profile " + name + " not found in " + filename)
	}
	return p, nil
}

// LoadDotEnv loads NUTANIX_* and proxy variables from a .env file if one exists.
// Variables already present in the environment are not overwritten.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}
	return godotenv.Load(path)
}
