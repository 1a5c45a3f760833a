package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/piccolo-io/piccolo/pkg/types"
)

// Node commands talk to the master's REST API.
var nodeCmd = &cobra.Command{
	Use:   "node",
	Short: "Manage cluster nodes",
}

var nodeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List nodes in the cluster",
	RunE: func(cmd *cobra.Command, args []string) error {
		base, _ := cmd.Flags().GetString("master")

		var nodes []*types.Node
		if err := restGet(base+"/api/v1/nodes", &nodes); err != nil {
			return err
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "NAME\tID\tROLE\tSTATUS\tADDRESS\tLAST HEARTBEAT")
		for _, n := range nodes {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				n.NodeName, shortID(n.NodeID), n.Role, n.Status, n.IPAddress,
				time.Unix(n.LastHeartbeat, 0).Format(time.RFC3339))
		}
		return w.Flush()
	},
}

var nodeStatusCmd = &cobra.Command{
	Use:   "status NODE_ID STATUS",
	Short: "Set a node's status (admin override, e.g. maintenance)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		base, _ := cmd.Flags().GetString("master")
		return restPost(fmt.Sprintf("%s/api/v1/nodes/%s/status", base, args[0]),
			map[string]string{"status": args[1]})
	},
}

var nodeRemoveCmd = &cobra.Command{
	Use:   "remove NODE_ID",
	Short: "Deregister a node from the cluster",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		base, _ := cmd.Flags().GetString("master")
		req, err := http.NewRequest(http.MethodDelete,
			fmt.Sprintf("%s/api/v1/nodes/%s", base, args[0]), nil)
		if err != nil {
			return err
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 300 {
			return restError(resp)
		}
		fmt.Printf("Node %s deregistered\n", args[0])
		return nil
	},
}

var nodeTopologyCmd = &cobra.Command{
	Use:   "topology",
	Short: "Show the cluster topology",
	RunE: func(cmd *cobra.Command, args []string) error {
		base, _ := cmd.Flags().GetString("master")

		var topo types.Topology
		if err := restGet(base+"/api/v1/topology", &topo); err != nil {
			return err
		}

		if topo.Master != nil {
			fmt.Printf("master: %s (%s)\n", topo.Master.NodeName, topo.Master.Status)
		} else {
			fmt.Println("master: <none>")
		}
		for _, sub := range topo.Subs {
			fmt.Printf("  sub: %s (%s)\n", sub.NodeName, sub.Status)
		}
		return nil
	},
}

func init() {
	nodeCmd.PersistentFlags().String("master", "http://127.0.0.1:47099", "Master REST address")
	nodeCmd.AddCommand(nodeListCmd)
	nodeCmd.AddCommand(nodeStatusCmd)
	nodeCmd.AddCommand(nodeRemoveCmd)
	nodeCmd.AddCommand(nodeTopologyCmd)
}

func restGet(url string, out interface{}) error {
	resp, err := http.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return restError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func restPost(url string, body interface{}) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return restError(resp)
	}
	return nil
}

func restError(resp *http.Response) error {
	data, _ := io.ReadAll(resp.Body)
	var body struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(data, &body) == nil && body.Error != "" {
		return fmt.Errorf("%s", body.Error)
	}
	return fmt.Errorf("request failed with status %d", resp.StatusCode)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
