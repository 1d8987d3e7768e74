package output

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/pterm/pterm"

	"github.com/Bawycle/lens/internal/core"
	"github.com/Bawycle/lens/pkg/lens"
)

// HumanPrinter prints human-readable output.
type HumanPrinter struct{}

// EventOutput carries a browser event for watch output.
type EventOutput struct {
	BrowserID string
	Event     lens.Event
}

// Print renders human output.
func (HumanPrinter) Print(v any) error {
	switch data := v.(type) {
	case core.NodesResult:
		return printNodes(data)
	case core.StatusResult:
		return printStatus(data)
	case core.NavigateResult:
		return printNavigate(data)
	case core.ListResult:
		return printList(data)
	case core.RescanResult:
		return printRescan(data)
	case EventOutput:
		return printEvent(data)
	default:
		_, err := fmt.Fprintln(os.Stdout, "ok")
		return err
	}
}

func printNodes(result core.NodesResult) error {
	tw := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, "NAME\tKIND\tNODE_ID"); err != nil {
		return err
	}
	for _, node := range result.Nodes {
		_, err := fmt.Fprintf(tw, "%s\t%s\t%s\n", node.Name, node.Kind, node.NodeID)
		if err != nil {
			return err
		}
	}
	return tw.Flush()
}

func printStatus(result core.StatusResult) error {
	current := "(nothing shown)"
	if cur := result.State.Current; cur != nil {
		current = filepath.Base(cur.Path)
		if cur.Unresolved {
			current = pterm.Yellow(current + " (missing)")
		} else if cur.Kind != "" {
			current = fmt.Sprintf("%s [%s]", current, cur.Kind)
		}
	}

	line := fmt.Sprintf("%s  %s", pterm.Bold.Sprint(result.Browser.Name), current)
	if idx := result.State.Index; idx != nil {
		if idx.Position >= 0 {
			line += pterm.Gray(fmt.Sprintf("  %d/%d in %s", idx.Position+1, idx.Length, idx.Directory))
		} else {
			line += pterm.Gray(fmt.Sprintf("  -/%d in %s", idx.Length, idx.Directory))
		}
	}
	_, err := fmt.Fprintln(os.Stdout, line)
	return err
}

func printNavigate(result core.NavigateResult) error {
	if !result.Dispatched {
		_, err := fmt.Fprintln(os.Stdout, "nothing to show")
		return err
	}
	_, err := fmt.Fprintf(os.Stdout, "loading %s\n", filepath.Base(result.Target))
	return err
}

func printList(result core.ListResult) error {
	tw := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, " \tNAME\tKIND"); err != nil {
		return err
	}
	for _, entry := range result.Listing.Entries {
		marker := " "
		if entry.Current {
			marker = pterm.Green("*")
		}
		name := entry.Name
		if result.FullPaths {
			name = entry.Path
		}
		if _, err := fmt.Fprintf(tw, "%s\t%s\t%s\n", marker, name, entry.Kind); err != nil {
			return err
		}
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	if result.Listing.Total > int64(len(result.Listing.Entries)) {
		_, err := fmt.Fprintf(os.Stdout, "%d of %d entries\n", len(result.Listing.Entries), result.Listing.Total)
		return err
	}
	return nil
}

func printRescan(result core.RescanResult) error {
	_, err := fmt.Fprintf(os.Stdout, "%s: %d entries\n", result.Directory, result.Length)
	return err
}

func printEvent(result EventOutput) error {
	switch result.Event.Level {
	case lens.LevelError:
		pterm.Error.Println(result.Event.Message)
	case lens.LevelWarning:
		pterm.Warning.Println(result.Event.Message)
	default:
		pterm.Info.Println(result.Event.Message)
	}
	return nil
}
