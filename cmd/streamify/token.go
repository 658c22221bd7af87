package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"streamify/internal/auth"
	"streamify/internal/config"
)

type tokenResult struct {
	Owner string `json:"owner,omitempty" yaml:"owner,omitempty"`
	Admin bool   `json:"admin,omitempty" yaml:"admin,omitempty"`
	Token string `json:"token,omitempty" yaml:"token,omitempty"`
	Hash  string `json:"hash" yaml:"hash"`
	Path  string `json:"path,omitempty" yaml:"path,omitempty"`
}

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage API bearer tokens",
	}

	cmd.AddCommand(newTokenHashCmd())
	cmd.AddCommand(newTokenAddCmd())
	return cmd
}

func newTokenHashCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash [<token>]",
		Short: "Print the bcrypt hash of a token, generating one if omitted",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, generated, err := tokenFromArgs(args)
			if err != nil {
				return err
			}
			hash, err := auth.HashToken(token)
			if err != nil {
				return err
			}

			result := tokenResult{Hash: hash}
			if generated {
				result.Token = token
			}
			return writeOutput(result, func() error {
				if generated {
					if err := writePlain("token: %s\n", token); err != nil {
						return err
					}
				}
				return writePlain("hash: %s\n", hash)
			})
		},
	}
}

func newTokenAddCmd() *cobra.Command {
	var (
		owner  string
		admin  bool
		global bool
	)

	cmd := &cobra.Command{
		Use:   "add [<token>]",
		Short: "Add a token for an owner to the config file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			normalized, err := auth.NormalizeOwner(owner)
			if err != nil {
				return err
			}
			token, generated, err := tokenFromArgs(args)
			if err != nil {
				return err
			}
			hash, err := auth.HashToken(token)
			if err != nil {
				return err
			}

			path, err := configPath(global)
			if err != nil {
				return err
			}
			if err := config.AddToken(path, config.TokenConfig{Owner: normalized, Hash: hash, Admin: admin}); err != nil {
				return err
			}

			result := tokenResult{Owner: normalized, Admin: admin, Hash: hash, Path: path}
			if generated {
				result.Token = token
			}
			return writeOutput(result, func() error {
				if generated {
					fmt.Fprintln(os.Stderr, "store this token now; only its hash is saved")
					if err := writePlain("token: %s\n", token); err != nil {
						return err
					}
				}
				return writePlain("added token for %s to %s\n", normalized, path)
			})
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "owner the token authenticates as (required)")
	cmd.Flags().BoolVar(&admin, "admin", false, "grant admin rights")
	cmd.Flags().BoolVar(&global, "global", false, "write to global config (~/.streamify.toml)")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}

func tokenFromArgs(args []string) (string, bool, error) {
	if len(args) == 1 {
		if err := auth.ValidateToken(args[0]); err != nil {
			return "", false, err
		}
		return args[0], false, nil
	}
	token, err := auth.GenerateToken()
	if err != nil {
		return "", false, err
	}
	return token, true, nil
}
