package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cometbft/cometbft/rpc/client/http"
	"github.com/spf13/cobra"
	"github.com/suyogster/agora-scores/app"
)

type queryArguments struct {
	Url      string
	Proposal uint64
	Voter    string
	Address  string
	Offset   uint64
	Limit    uint64
}

var queryArgs queryArguments

var queryCmd = &cobra.Command{
	Use:   "query <path>",
	Short: "Query committed governance state",
	Long: `Query committed governance state. Paths: name, whitelist, tokens, threshold,
last_proposal_id, proposal, vote, vote_detail, voters_count, account.`,
	Args: cobra.ExactArgs(1),
	RunE: queryRun,
}

func init() {
	urlFlag(queryCmd, &queryArgs.Url)
	queryCmd.Flags().Uint64VarP(&queryArgs.Proposal, "proposal", "p", 0, "proposal id")
	queryCmd.Flags().StringVar(&queryArgs.Voter, "voter", "", "voter address")
	queryCmd.Flags().StringVarP(&queryArgs.Address, "address", "a", "", "account address")
	queryCmd.Flags().Uint64Var(&queryArgs.Offset, "offset", 0, "vote_detail offset")
	queryCmd.Flags().Uint64Var(&queryArgs.Limit, "limit", 20, "vote_detail limit")
}

func queryRun(cmd *cobra.Command, args []string) error {
	params := &app.QueryParams{
		Proposal: queryArgs.Proposal,
		Offset:   queryArgs.Offset,
		Limit:    queryArgs.Limit,
	}
	var err error
	if queryArgs.Voter != "" {
		if params.Voter, err = parseAddress(queryArgs.Voter); err != nil {
			return err
		}
	}
	if queryArgs.Address != "" {
		if params.Address, err = parseAddress(queryArgs.Address); err != nil {
			return err
		}
	}
	cli, err := http.New(queryArgs.Url, "/websocket")
	if err != nil {
		return fmt.Errorf("new client: %w", err)
	}
	var out json.RawMessage
	path := "/" + strings.Trim(args[0], "/")
	if err = abciQuery(context.Background(), cli, path, params, &out); err != nil {
		return err
	}
	pretty, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(pretty))
	return nil
}

func abciQuery(ctx context.Context, cli *http.HTTP, path string, params *app.QueryParams, out any) error {
	dat, err := json.Marshal(params)
	if err != nil {
		return err
	}
	res, err := cli.ABCIQuery(ctx, path, dat)
	if err != nil {
		return fmt.Errorf("query %s: %w", path, err)
	}
	if res.Response.Code != 0 {
		return fmt.Errorf("query %s: code %d: %s", path, res.Response.Code, res.Response.Log)
	}
	return json.Unmarshal(res.Response.Value, out)
}
