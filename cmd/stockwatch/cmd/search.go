package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/wonny/stockwatch/internal/service/search"
	"golang.org/x/sync/errgroup"
)

var searchTimeout time.Duration

// searchCmd looks up ticker symbols
var searchCmd = &cobra.Command{
	Use:   "search <keywords>",
	Short: "Search ticker symbols",
	Example: `  stockwatch search apple
  stockwatch search "bank of america"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

// quoteCmd prints the latest quote for each symbol
var quoteCmd = &cobra.Command{
	Use:     "quote <symbol>...",
	Short:   "Fetch the latest quote for symbols",
	Example: `  stockwatch quote AAPL MSFT`,
	Args:    cobra.MinimumNArgs(1),
	RunE:    runQuote,
}

func init() {
	searchCmd.Flags().DurationVar(&searchTimeout, "timeout", 15*time.Second, "request timeout")
	quoteCmd.Flags().DurationVar(&searchTimeout, "timeout", 15*time.Second, "request timeout")
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), searchTimeout)
	defer cancel()

	svc := search.NewService(newQuoteClient(cfg), search.NewCache(cfg.Watchlist.SearchCacheSize))
	matches, err := svc.Search(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SYMBOL\tNAME\tREGION\tCURRENCY\tSCORE")
	for _, m := range matches {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", m.Symbol, m.Name, m.Region, m.Currency, m.MatchScore)
	}
	return w.Flush()
}

func runQuote(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), searchTimeout)
	defer cancel()

	client := newQuoteClient(cfg)
	lines := make([]string, len(args))

	g, gctx := errgroup.WithContext(ctx)
	for i, symbol := range args {
		i, symbol := i, strings.ToUpper(symbol)
		g.Go(func() error {
			q, err := client.GetQuote(gctx, symbol)
			if err != nil {
				lines[i] = fmt.Sprintf("%s\t-\t%v", symbol, err)
				return nil
			}
			lines[i] = fmt.Sprintf("%s\t%s\t%s", q.Symbol, q.Price, q.ChangePercent)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SYMBOL\tPRICE\tCHANGE")
	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
	return w.Flush()
}
