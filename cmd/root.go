package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tradechat",
	Short: "chat-driven spot trading assistant",
}

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "run the http api",
	RunE: func(cmd *cobra.Command, args []string) error {
		handler, err := InitializeDependencies()
		if err != nil {
			return err
		}
		defer CloseDependencies(handler)

		return handler.StartApi(servePort)
	},
}

var chatConversationID string

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "process one chat message and print the reply",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		handler, err := InitializeDependencies()
		if err != nil {
			return err
		}
		defer CloseDependencies(handler)

		conversationID := chatConversationID
		if conversationID == "" {
			conversationID = uuid.NewString()
		}

		reply, err := handler.ChatHandler.ProcessMessage(context.Background(), conversationID, args[0])
		if err != nil {
			return err
		}
		if reply == nil {
			fmt.Println("(no reply - message matched no trading intent)")
			return nil
		}
		fmt.Println(*reply)

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 3010, "port to listen on")
	chatCmd.Flags().StringVar(&chatConversationID, "conversation", "", "conversation id for dialog context; random when omitted")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(chatCmd)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
