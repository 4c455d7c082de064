package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/yaar-cli/internal/core/domain"
)

var falCmd = &cobra.Command{
	Use:   "fal [query...]",
	Short: "Draw a fal for a query",
	Long: `Embeds the query, retrieves the nearest couplet from the dataset and prints
its fal: the couplet, one sentence per affect and, when tagged, a lens line.

The query is read from standard input when no arguments are given.
Requires the embeddings built by 'yaar embed'.`,
	RunE: runFal,
}

func init() {
	rootCmd.AddCommand(falCmd)
}

func runFal(cmd *cobra.Command, args []string) error {
	if falService == nil {
		return notConfigured("fal")
	}

	query := strings.Join(args, " ")
	if strings.TrimSpace(query) == "" {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return errors.New("a query is required")
		}
		query = line
	}

	out, err := falService.Fal(commandContext(cmd), query)
	if err != nil {
		if errors.Is(err, domain.ErrEmbeddingsNotFound) {
			return err
		}
		return fmt.Errorf("fal failed: %w", err)
	}

	cmd.Println(out)
	return nil
}
