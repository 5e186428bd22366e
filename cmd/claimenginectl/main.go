// Command claimenginectl is a thin HTTP client for the Emission Claim
// Engine, in the spirit of dcrlnd's dcrlncli: one urfave/cli command per
// RPC, JSON in, pretty-printed JSON out.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/urfave/cli"
)

var baseURLFlag = cli.StringFlag{
	Name:  "rpcserver",
	Value: "http://localhost:8686",
	Usage: "base URL (scheme://host:port) of claimengined's HTTP API",
}

func main() {
	app := cli.NewApp()
	app.Name = "claimenginectl"
	app.Usage = "control plane for claimengined"
	app.Flags = []cli.Flag{baseURLFlag}
	app.Commands = []cli.Command{
		eligibilityCommand,
		mintCommand,
		confirmCommand,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("[claimenginectl] %v", err))
		os.Exit(1)
	}
}

// actionDecorator wraps a command action so a returned error is reported
// consistently rather than each command handling its own exit path.
func actionDecorator(fn func(*cli.Context) error) func(*cli.Context) error {
	return func(c *cli.Context) error {
		if err := fn(c); err != nil {
			return cli.NewExitError(err.Error(), 1)
		}
		return nil
	}
}

func httpClient() *http.Client {
	return &http.Client{Timeout: 15 * time.Second}
}

func printRespJSON(body io.Reader) error {
	var v interface{}
	if err := json.NewDecoder(body).Decode(&v); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	pretty, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(pretty))
	return nil
}

func apiURL(c *cli.Context, path string) string {
	base := strings.TrimRight(c.GlobalString(baseURLFlag.Name), "/")
	return base + path
}
