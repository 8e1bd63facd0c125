package config

import (
	"context"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

// Environment variables read by LoadEnv
const (
	TokenEnv    = "GITHUB_TOKEN"
	AltTokenEnv = "GH_TOKEN"
	APIURLEnv   = "GITHUB_API_URL"
)

// 🔑 Env holds the values taken from the environment rather than job files
type Env struct {
	Token  string
	APIURL string
}

// LoadEnv loads the given .env files, skipping the ones that do not exist,
// and then reads the token and API url from the environment. Variables that
// are already set win over .env values.
func LoadEnv(ctx context.Context, files ...string) (Env, error) {
	logger := zerolog.Ctx(ctx)

	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return Env{}, errors.Errorf("loading env file %s: %w", f, err)
		}
		logger.Debug().Str("file", f).Msg("loaded env file")
	}

	env := Env{
		Token:  os.Getenv(TokenEnv),
		APIURL: os.Getenv(APIURLEnv),
	}
	if env.Token == "" {
		env.Token = os.Getenv(AltTokenEnv)
	}
	return env, nil
}
