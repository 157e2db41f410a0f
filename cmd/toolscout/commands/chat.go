package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/toolscout-ai/toolscout/internal/event"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat session",
	Long: `Start an interactive chat session on stdin/stdout.

Ask anything and toolscout will recommend MCP servers that could help.
Type 'connect <server>' to attach one, 'servers' to list connections,
and 'exit' to quit.`,
	RunE: runChat,
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()
	a, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	sess := a.registry.Create()

	// Agent replies stream token by token; command replies arrive whole.
	streamed := false
	unsub := a.bus.Subscribe(event.MessageToken, func(e event.Event) {
		if data, ok := e.Data.(event.MessageTokenData); ok && data.SessionID == sess.ID {
			fmt.Print(data.Token)
			streamed = true
		}
	})
	defer unsub()

	fmt.Printf("toolscout %s — model %s\n", Version, cfg.Model)
	fmt.Println("Ask me anything. Type 'connect <server>' to attach tools, 'exit' to quit.")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}

		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if text == "exit" || text == "quit" {
			break
		}

		streamed = false
		reply, err := a.chat.HandleTurn(ctx, sess, text)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}

		if streamed {
			fmt.Println()
		} else {
			fmt.Println(reply)
		}
		fmt.Println()
	}

	return scanner.Err()
}
