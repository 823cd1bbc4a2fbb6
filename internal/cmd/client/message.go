package client

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/spf13/cobra"
)

// NewMessageCommand returns the `zaqar message` command group.
func NewMessageCommand(baseURL BaseURLFunc) *cobra.Command {
	messageCmd := &cobra.Command{Use: "message", Short: "Message operations"}
	messageCmd.PersistentFlags().String("project", "default", "Project id")
	messageCmd.PersistentFlags().String("queue", "", "Queue name")
	_ = messageCmd.MarkPersistentFlagRequired("queue")

	postCmd := &cobra.Command{
		Use:   "post",
		Short: "Post a message",
		RunE: func(cmd *cobra.Command, args []string) error {
			queue, _ := cmd.Flags().GetString("queue")
			project, _ := cmd.Flags().GetString("project")
			data, _ := cmd.Flags().GetString("data")
			ttl, _ := cmd.Flags().GetInt("ttl")

			var payload interface{}
			if err := json.Unmarshal([]byte(data), &payload); err != nil {
				// treat non-JSON data as a plain string body
				payload = data
			}
			b, _ := json.Marshal(map[string]interface{}{
				"messages": []map[string]interface{}{{"ttl": ttl, "body": payload}},
			})
			status, raw, err := call(http.MethodPost, baseURL()+"/v1/queues/"+queue+"/messages", project, b)
			if err != nil {
				return err
			}
			printResult(status, raw)
			return nil
		},
	}
	postCmd.Flags().String("data", "", "Message body (JSON or plain text)")
	postCmd.Flags().Int("ttl", 300, "Message TTL in seconds")
	_ = postCmd.MarkFlagRequired("data")
	messageCmd.AddCommand(postCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List messages",
		RunE: func(cmd *cobra.Command, args []string) error {
			queue, _ := cmd.Flags().GetString("queue")
			project, _ := cmd.Flags().GetString("project")
			limit, _ := cmd.Flags().GetInt("limit")
			echo, _ := cmd.Flags().GetBool("echo")
			claimed, _ := cmd.Flags().GetBool("include-claimed")
			marker, _ := cmd.Flags().GetString("marker")

			q := url.Values{}
			if limit > 0 {
				q.Set("limit", fmt.Sprintf("%d", limit))
			}
			if echo {
				q.Set("echo", "true")
			}
			if claimed {
				q.Set("include_claimed", "true")
			}
			if marker != "" {
				q.Set("marker", marker)
			}
			status, raw, err := call(http.MethodGet,
				baseURL()+"/v1/queues/"+queue+"/messages?"+q.Encode(), project, nil)
			if err != nil {
				return err
			}
			printResult(status, raw)
			return nil
		},
	}
	listCmd.Flags().Int("limit", 0, "Page size")
	listCmd.Flags().Bool("echo", false, "Include this client's own messages")
	listCmd.Flags().Bool("include-claimed", false, "Include claimed messages")
	listCmd.Flags().String("marker", "", "Resume after this message id")
	messageCmd.AddCommand(listCmd)

	popCmd := &cobra.Command{
		Use:   "pop",
		Short: "Atomically remove and return the oldest free messages",
		RunE: func(cmd *cobra.Command, args []string) error {
			queue, _ := cmd.Flags().GetString("queue")
			project, _ := cmd.Flags().GetString("project")
			count, _ := cmd.Flags().GetInt("count")

			status, raw, err := call(http.MethodDelete,
				baseURL()+fmt.Sprintf("/v1/queues/%s/messages?pop=%d", queue, count), project, nil)
			if err != nil {
				return err
			}
			printResult(status, raw)
			return nil
		},
	}
	popCmd.Flags().Int("count", 1, "Maximum number of messages to pop")
	messageCmd.AddCommand(popCmd)

	deleteCmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a message by id",
		RunE: func(cmd *cobra.Command, args []string) error {
			queue, _ := cmd.Flags().GetString("queue")
			project, _ := cmd.Flags().GetString("project")
			id, _ := cmd.Flags().GetString("id")
			claim, _ := cmd.Flags().GetString("claim-id")

			u := baseURL() + "/v1/queues/" + queue + "/messages/" + id
			if claim != "" {
				u += "?claim_id=" + url.QueryEscape(claim)
			}
			status, raw, err := call(http.MethodDelete, u, project, nil)
			if err != nil {
				return err
			}
			printResult(status, raw)
			return nil
		},
	}
	deleteCmd.Flags().String("id", "", "Message id")
	deleteCmd.Flags().String("claim-id", "", "Claim id owning the message, if claimed")
	_ = deleteCmd.MarkFlagRequired("id")
	messageCmd.AddCommand(deleteCmd)

	return messageCmd
}
