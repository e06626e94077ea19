package config_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jonwraymond/streamsource/config"
	"github.com/jonwraymond/streamsource/source"
)

func ExampleBuild() {
	dir, _ := os.MkdirTemp("", "config-example")
	defer os.RemoveAll(dir)
	_ = os.WriteFile(filepath.Join(dir, "part1"), []byte("alpha\n"), 0o600)
	_ = os.WriteFile(filepath.Join(dir, "part2"), []byte("beta\n"), 0o600)

	cfg, err := config.Parse([]byte(`{
		"type": "concat",
		"sources": [
			{"type": "file", "path": "` + filepath.Join(dir, "part1") + `"},
			{"type": "file", "path": "` + filepath.Join(dir, "part2") + `"}
		]
	}`))
	if err != nil {
		fmt.Println("Error:", err)
		return
	}

	ctx := context.Background()
	src, err := config.Build(ctx, cfg, config.Options{})
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	_ = source.Use(ctx, src, func() error {
		text, err := src.Text(ctx)
		fmt.Printf("%q\n", text)
		return err
	})
	// Output:
	// "alpha\nbeta\n"
}

func ExampleParse_invalid() {
	_, err := config.Parse([]byte(`{"type": "gzip"}`))
	fmt.Println(err)
	// Output:
	// config: invalid source config: $.source: missing source
}
