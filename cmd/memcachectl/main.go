// Command memcachectl is a small operator tool for poking at a memcache
// deployment configured the same way the library's own Config would be.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/arlobridge/gomemcache"
	"github.com/spf13/cobra"
)

var (
	serverAddr string

	rootCmd = &cobra.Command{
		Use:   "memcachectl",
		Short: "inspect and poke at a memcached server from the command line",
	}

	getCmd = &cobra.Command{
		Use:   "get [key]",
		Short: "fetch a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			defer client.Dispose()

			item, found, err := client.Get(context.Background(), args[0])
			if err != nil {
				return err
			}
			if !found {
				fmt.Println("(miss)")
				return nil
			}
			fmt.Printf("%s\n", item.Data)
			return nil
		},
	}

	setCmd = &cobra.Command{
		Use:   "set [key] [value]",
		Short: "store a key with no expiration",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			defer client.Dispose()

			res, err := client.Store(context.Background(), memcache.ModeSet, args[0], []byte(args[1]), memcache.NeverExpires())
			if err != nil {
				return err
			}
			if !res.Success {
				return fmt.Errorf("set failed: %s", res.Status)
			}
			fmt.Println("STORED")
			return nil
		},
	}

	deleteCmd = &cobra.Command{
		Use:   "delete [key]",
		Short: "remove a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			defer client.Dispose()

			res, err := client.Remove(context.Background(), args[0])
			if err != nil {
				return err
			}
			fmt.Println(res.Status)
			return nil
		},
	}

	statsCmd = &cobra.Command{
		Use:   "stats",
		Short: "print per-node STAT values",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := newClient()
			if err != nil {
				return err
			}
			defer client.Dispose()

			stats, err := client.Stats(context.Background(), "")
			if err != nil {
				return err
			}
			for addr, values := range stats {
				fmt.Printf("%s:\n", addr)
				for k, v := range values {
					fmt.Printf("  %s = %s\n", k, v)
				}
			}
			return nil
		},
	}
)

func newClient() (*memcache.Client, error) {
	host, portStr, err := splitHostPort(serverAddr)
	if err != nil {
		return nil, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid port %q: %w", portStr, err)
	}
	return memcache.NewClient(memcache.Config{
		Servers: []memcache.ServerAddr{{Address: host, Port: port}},
		SocketPool: memcache.SocketPoolConfig{
			MaxPoolSize:       4,
			ConnectionTimeout: 3 * time.Second,
			ReceiveTimeout:    3 * time.Second,
		},
	})
}

func splitHostPort(addr string) (host, port string, err error) {
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == ':' {
			return addr[:i], addr[i+1:], nil
		}
	}
	return "", "", fmt.Errorf("expected host:port, got %q", addr)
}

func main() {
	rootCmd.PersistentFlags().StringVar(&serverAddr, "server", "127.0.0.1:11211", "memcached server address")
	rootCmd.AddCommand(getCmd, setCmd, deleteCmd, statsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
