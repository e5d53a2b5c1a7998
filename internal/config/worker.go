package config

import (
	"context"

	"github.com/sethvargo/go-envconfig"
)

func LoadWorker(ctx context.Context) (*Worker, error) {
	w := &Worker{}
	if err := envconfig.Process(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}
