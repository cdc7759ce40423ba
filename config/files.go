package config

import (
	"os"
	"path/filepath"
)

// files looked up in CONFIG_DIR, or ~/.transactions when unset
var (
	// generated certificate authority
	CAFile = configFile("ca.pem")
	// Server certificate and key
	ServerCertFile = configFile("server.pem")
	ServerKeyFile  = configFile("server-key.pem")
	// access control lists
	ACLModelFile  = configFile("model.conf")
	ACLPolicyFile = configFile("policy.csv")
)

// Dir reports whether CONFIG_DIR points at a config directory
func Dir() (string, bool) {
	dir := os.Getenv("CONFIG_DIR")
	return dir, dir != ""
}

func configFile(filename string) string {
	if dir, ok := Dir(); ok {
		return filepath.Join(dir, filename)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		panic(err)
	}

	return filepath.Join(homeDir, ".transactions", filename)
}
