package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/urfave/cli"
)

var eligibilityCommand = cli.Command{
	Name:      "eligibility",
	Category:  "Claims",
	Usage:     "Query a wallet's claim eligibility for a token.",
	ArgsUsage: "token wallet",
	Action:    actionDecorator(eligibility),
}

func eligibility(c *cli.Context) error {
	args := c.Args()
	if len(args) != 2 {
		return cli.ShowCommandHelp(c, "eligibility")
	}
	token, wallet := args.Get(0), args.Get(1)

	url := apiURL(c, fmt.Sprintf("/claims/%s?wallet=%s", token, wallet))
	resp, err := httpClient().Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return printRespJSON(resp.Body)
}

var mintCommand = cli.Command{
	Name:      "mint",
	Category:  "Claims",
	Usage:     "Prepare an unsigned claim transaction.",
	ArgsUsage: "token wallet amount",
	Action:    actionDecorator(mint),
}

func mint(c *cli.Context) error {
	args := c.Args()
	if len(args) != 3 {
		return cli.ShowCommandHelp(c, "mint")
	}

	body, err := json.Marshal(map[string]string{
		"tokenAddress": args.Get(0),
		"userWallet":   args.Get(1),
		"claimAmount":  args.Get(2),
	})
	if err != nil {
		return err
	}

	resp, err := httpClient().Post(apiURL(c, "/claims/mint"), "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return printRespJSON(resp.Body)
}

var confirmCommand = cli.Command{
	Name:      "confirm",
	Category:  "Claims",
	Usage:     "Submit a signed claim transaction for confirmation.",
	ArgsUsage: "transactionKey signedTransaction",
	Action:    actionDecorator(confirm),
}

func confirm(c *cli.Context) error {
	args := c.Args()
	if len(args) != 2 {
		return cli.ShowCommandHelp(c, "confirm")
	}

	body, err := json.Marshal(map[string]string{
		"transactionKey":    args.Get(0),
		"signedTransaction": args.Get(1),
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, apiURL(c, "/claims/confirm"), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return printRespJSON(resp.Body)
}
