package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-model-cache/cache"
)

// ErrKeyNotFound is returned by inspect when the key is absent or expired.
var ErrKeyNotFound = errors.New("key not found")

func (a *App) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.stdout, "modelcache version %s\n", Version)
			fmt.Fprintf(a.stdout, "  Git commit: %s\n", GitCommit)
		},
	}
}

type hashOptions struct {
	collaborator string
	method       string
	tag          string
	asArray      bool
	raw          bool
	withLock     bool
}

func (a *App) newHashCmd() *cobra.Command {
	opts := &hashOptions{}

	cmd := &cobra.Command{
		Use:   "hash [args...]",
		Short: "Print the digest or cache key for a call",
		Long: `Print the argument digest for a call, or the full cache key when
--collaborator and --method are given.

Each argument is parsed as JSON when it is valid JSON and used as a plain
string otherwise, so 42, true and {"id":1} hash like the values a caller
would pass.

Examples:
  modelcache hash 42
  modelcache hash --collaborator file --method getBySha256 abc123`,
		RunE: func(cmd *cobra.Command, args []string) error {
			values := make([]any, len(args))
			for i, arg := range args {
				values[i] = parseArg(arg)
			}

			digest := cache.NewDefaultKeyHasher().Hash(values...)
			if opts.collaborator == "" || opts.method == "" {
				fmt.Fprintln(a.stdout, digest)
				return nil
			}

			flags := cache.Options{AsArray: opts.asArray, Raw: opts.raw, WithLock: opts.withLock}.Flags()
			fmt.Fprintln(a.stdout, strings.Join([]string{opts.collaborator, opts.method, flags, digest, opts.tag}, ":"))
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.collaborator, "collaborator", "", "Collaborator name")
	cmd.Flags().StringVar(&opts.method, "method", "", "Method name")
	cmd.Flags().StringVar(&opts.tag, "tag", "", "Transform tag")
	cmd.Flags().BoolVar(&opts.asArray, "array", false, "Array mode")
	cmd.Flags().BoolVar(&opts.raw, "raw", false, "Raw mode")
	cmd.Flags().BoolVar(&opts.withLock, "lock", false, "Locked population")

	return cmd
}

func parseArg(arg string) any {
	var v any
	if err := json.Unmarshal([]byte(arg), &v); err == nil {
		return v
	}
	return arg
}

type inspectOptions struct {
	stored bool
}

func (a *App) newInspectCmd() *cobra.Command {
	opts := &inspectOptions{}

	cmd := &cobra.Command{
		Use:   "inspect <key>",
		Short: "Print a cached entry",
		Long: `Print the entry stored under key, decoded according to the flags
segment of the key. Keys are given without the store prefix.

Use --stored to print the decompressed bytes exactly as stored.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, _, err := a.openBackend(cmd.Context())
			if err != nil {
				return err
			}
			defer backend.Close()

			key := args[0]
			data, ok, err := backend.Store.Get(cmd.Context(), key)
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", key, err)
			}
			if !ok {
				return fmt.Errorf("%w: %s", ErrKeyNotFound, key)
			}

			if opts.stored {
				fmt.Fprintln(a.stdout, string(data))
				return nil
			}

			decoded, err := cache.NewCodec().Decode(data, keyOptions(key))
			if err != nil {
				return fmt.Errorf("failed to decode %s: %w", key, err)
			}
			out, err := json.MarshalIndent(decoded, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, string(out))
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.stored, "stored", false, "Print the stored bytes without decoding")

	return cmd
}

// keyOptions reads the flags segment of key, falling back to scalar mode.
func keyOptions(key string) cache.Options {
	parts := strings.SplitN(key, ":", 5)
	if len(parts) < 3 {
		return cache.Options{}
	}
	opts, err := cache.ParseFlags(parts[2])
	if err != nil {
		return cache.Options{}
	}
	return opts
}

type flushOptions struct {
	collaborator string
}

func (a *App) newFlushCmd() *cobra.Command {
	opts := &flushOptions{}

	cmd := &cobra.Command{
		Use:   "flush",
		Short: "Remove cached entries",
		Long: `Remove every entry owned by the store, or only one collaborator's
entries with --collaborator.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			backend, _, err := a.openBackend(cmd.Context())
			if err != nil {
				return err
			}
			defer backend.Close()

			if opts.collaborator != "" {
				if err := backend.Store.DeleteByPrefix(cmd.Context(), opts.collaborator+":"); err != nil {
					return fmt.Errorf("failed to flush %s: %w", opts.collaborator, err)
				}
				fmt.Fprintf(a.stdout, "flushed %s\n", opts.collaborator)
				return nil
			}

			if err := backend.Store.Flush(cmd.Context()); err != nil {
				return fmt.Errorf("failed to flush store: %w", err)
			}
			fmt.Fprintln(a.stdout, "flushed")
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.collaborator, "collaborator", "", "Only remove this collaborator's entries")

	return cmd
}

func (a *App) newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			if u, err := url.Parse(cfg.RedisURL); err == nil && cfg.RedisURL != "" {
				cfg.RedisURL = u.Redacted()
			}

			out, err := json.MarshalIndent(map[string]any{
				"redis_url":    cfg.RedisURL,
				"key_prefix":   cfg.KeyPrefix,
				"default_ttl":  cfg.DefaultTTL.String(),
				"invalidation": cfg.Invalidation,
				"lock_scope":   cfg.Lock.Scope,
				"memory": map[string]any{
					"capacity":   cfg.Memory.Capacity,
					"num_shards": cfg.Memory.NumShards,
				},
			}, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, string(out))
			return nil
		},
	}
}
