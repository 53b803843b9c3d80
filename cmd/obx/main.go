// Command obx is a thin CLI over saltmap: encrypt, decrypt, and
// authenticate a single file against its directory's keystore.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/mayamaclean/saltmap"
)

var (
	memoryKiB uint32
	verbose   bool
	chunkSize int
)

func init() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
}

var rootCmd = &cobra.Command{
	Use:   "obx",
	Short: "obx protects files with a directory-scoped keystore",
	Long: `obx derives a per-file key from a shared passphrase and a per-file
keystore entry, then encrypts, decrypts, or authenticates the file in place.`,
}

var encryptCmd = &cobra.Command{
	Use:   "e PASSPHRASE PATH",
	Short: "encrypt a file and record its commitment in the keystore",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWith(args[0], args[1], func(c *saltmap.Crypt) (bool, error) {
			return c.Encrypt()
		})
	},
}

var decryptCmd = &cobra.Command{
	Use:   "d PASSPHRASE PATH",
	Short: "authenticate then decrypt a file in place",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWith(args[0], args[1], func(c *saltmap.Crypt) (bool, error) {
			return c.Decrypt()
		})
	},
}

var authCmd = &cobra.Command{
	Use:   "auth PASSPHRASE PATH",
	Short: "verify a file's commitment without decrypting it",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWith(args[0], args[1], func(c *saltmap.Crypt) (bool, error) {
			return c.Authenticate()
		})
	},
}

var benchCmd = &cobra.Command{
	Use:   "bench PATH",
	Short: "report how many chunks PATH would split into at --chunk-size",
	Long: `bench never touches the keystore or a file's contents. It exists to let
an operator see how the chunk count scales at strides other than the
format's fixed 1 MiB, without risking the on-disk format's real chunking
contract.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("stat: %w", err)
		}
		count := saltmap.BenchmarkChunkCount(info.Size(), chunkSize)
		log.Info().Str("path", path).Int64("size", info.Size()).
			Int("chunk_size", chunkSize).Int("chunks", count).Msg("bench")
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false,
		"log the concrete error type behind a rejected operation")
	for _, c := range []*cobra.Command{encryptCmd, decryptCmd, authCmd} {
		c.Flags().Uint32Var(&memoryKiB, "mem-kib", saltmap.DefaultArgon2idParams().MemoryKiB,
			"Argon2id memory cost in KiB")
	}
	benchCmd.Flags().IntVar(&chunkSize, "chunk-size", 1<<20,
		"chunk size in bytes to use purely for this benchmark, independent of the format's fixed stride")
	rootCmd.AddCommand(encryptCmd, decryptCmd, authCmd, benchCmd)
}

func runWith(pass, path string, op func(*saltmap.Crypt) (bool, error)) error {
	params := saltmap.Argon2idParams{MemoryKiB: memoryKiB}

	c, ok, err := saltmap.Init(pass, path, params)
	if !ok {
		evt := log.Warn().Str("path", path)
		if verbose && err != nil {
			evt = evt.Str("error_type", errorType(err))
		}
		evt.Msg("no result: passphrase rejected or keystore unauthenticated")
		return nil
	}
	if err != nil {
		return fmt.Errorf("init: %w", err)
	}
	defer c.Close()

	result, err := op(c)
	if err != nil {
		return err
	}
	if verbose && !result {
		if authErr := c.LastAuthError(); authErr != nil {
			log.Warn().Str("path", path).Str("error_type", errorType(authErr)).Msg("operation reported false")
		}
	}
	log.Info().Str("path", path).Bool("result", result).Msg("done")
	return nil
}

// errorType names which of saltmap's structured error types err is, for
// --verbose diagnostics. It never inspects field values, only the type.
func errorType(err error) string {
	switch {
	case saltmap.IsValidationError(err):
		return "validation"
	case saltmap.IsAuthenticationError(err):
		return "authentication"
	case saltmap.IsCorruptionError(err):
		return "corruption"
	case saltmap.IsIOError(err):
		return "io"
	default:
		return "unknown"
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("obx failed")
		os.Exit(1)
	}
}
