package client

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/spf13/cobra"
)

// NewQueueCommand returns the `zaqar queue` command group.
func NewQueueCommand(baseURL BaseURLFunc) *cobra.Command {
	queueCmd := &cobra.Command{Use: "queue", Short: "Queue operations"}
	queueCmd.PersistentFlags().String("project", "default", "Project id")

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			project, _ := cmd.Flags().GetString("project")
			metaJSON, _ := cmd.Flags().GetString("metadata")

			body := map[string]interface{}{"queue_name": name}
			if metaJSON != "" {
				var metadata map[string]interface{}
				if err := json.Unmarshal([]byte(metaJSON), &metadata); err != nil {
					return fmt.Errorf("invalid --metadata: %w", err)
				}
				body["metadata"] = metadata
			}
			b, _ := json.Marshal(body)
			status, raw, err := call(http.MethodPost, baseURL()+"/v1/queues", project, b)
			if err != nil {
				return err
			}
			printResult(status, raw)
			return nil
		},
	}
	createCmd.Flags().String("name", "", "Queue name")
	createCmd.Flags().String("metadata", "", "Queue metadata as a JSON object")
	_ = createCmd.MarkFlagRequired("name")
	queueCmd.AddCommand(createCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List queues",
		RunE: func(cmd *cobra.Command, args []string) error {
			project, _ := cmd.Flags().GetString("project")
			limit, _ := cmd.Flags().GetInt("limit")
			detailed, _ := cmd.Flags().GetBool("detailed")
			marker, _ := cmd.Flags().GetString("marker")

			q := url.Values{}
			if limit > 0 {
				q.Set("limit", fmt.Sprintf("%d", limit))
			}
			if detailed {
				q.Set("detailed", "true")
			}
			if marker != "" {
				q.Set("marker", marker)
			}
			status, raw, err := call(http.MethodGet, baseURL()+"/v1/queues?"+q.Encode(), project, nil)
			if err != nil {
				return err
			}
			printResult(status, raw)
			return nil
		},
	}
	listCmd.Flags().Int("limit", 0, "Page size")
	listCmd.Flags().Bool("detailed", false, "Include queue metadata")
	listCmd.Flags().String("marker", "", "Resume after this queue name")
	queueCmd.AddCommand(listCmd)

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show queue message counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			project, _ := cmd.Flags().GetString("project")
			status, raw, err := call(http.MethodGet, baseURL()+"/v1/queues/"+name+"/stats", project, nil)
			if err != nil {
				return err
			}
			printResult(status, raw)
			return nil
		},
	}
	statsCmd.Flags().String("name", "", "Queue name")
	_ = statsCmd.MarkFlagRequired("name")
	queueCmd.AddCommand(statsCmd)

	deleteCmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a queue and everything in it",
		RunE: func(cmd *cobra.Command, args []string) error {
			name, _ := cmd.Flags().GetString("name")
			project, _ := cmd.Flags().GetString("project")
			status, raw, err := call(http.MethodDelete, baseURL()+"/v1/queues/"+name, project, nil)
			if err != nil {
				return err
			}
			printResult(status, raw)
			return nil
		},
	}
	deleteCmd.Flags().String("name", "", "Queue name")
	_ = deleteCmd.MarkFlagRequired("name")
	queueCmd.AddCommand(deleteCmd)

	return queueCmd
}
