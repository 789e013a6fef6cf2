package command

import (
	commandHandler "byokchat/internal/command/handler"

	"github.com/google/wire"
	"github.com/spf13/cobra"
)

var ProviderSet = wire.NewSet(NewCommand, commandHandler.NewChatHandler)

type Command struct {
	chatCommandHandler *commandHandler.ChatHandler
}

// NewCommand .
func NewCommand(
	chatCommandHandler *commandHandler.ChatHandler,
) *Command {
	return &Command{
		chatCommandHandler: chatCommandHandler,
	}
}

func Register(rootCmd *cobra.Command, newCmd func() (*Command, func(), error)) {
	chatCmd := &cobra.Command{
		Use:   "chat",
		Short: "interactive chat REPL against the local stack",
		Run: func(cmd *cobra.Command, args []string) {
			command, cleanup, err := newCmd()
			if err != nil {
				panic(err)
			}
			defer cleanup()

			command.chatCommandHandler.Run(cmd, args)
		},
	}
	chatCmd.Flags().String("user", "local-dev", "user id to chat as")
	chatCmd.Flags().String("provider", "openai", "model provider for the new chat")
	chatCmd.Flags().String("model", "", "model id (empty = provider default)")

	rootCmd.AddCommand(chatCmd)
}
