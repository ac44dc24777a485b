package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/cometbft/cometbft/rpc/client/http"
	"github.com/holiman/uint256"
	"github.com/spf13/cobra"
	"github.com/suyogster/agora-scores/app"
	"github.com/suyogster/agora-scores/crypto"
	"github.com/suyogster/agora-scores/tx"
	"github.com/suyogster/agora-scores/types"
)

type txArguments struct {
	Url   string
	Key   string
	Nonce int64
}

var txArgs txArguments

func txCmds() []*cobra.Command {
	cmds := []*cobra.Command{
		{
			Use:   "whitelist <address>",
			Short: "Allow an address to submit proposals (owner)",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				addr, err := parseAddress(args[0])
				if err != nil {
					return err
				}
				return sendTx(tx.AgoraTxTypeWhitelist, &tx.WhitelistTx{Address: addr})
			},
		},
		{
			Use:   "set-token <address> <type> <name>",
			Short: "Register a governance token (owner)",
			Long:  "Register a governance token. type is irc-2 or irc-31, name is crown or x_crown.",
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				addr, err := parseAddress(args[0])
				if err != nil {
					return err
				}
				return sendTx(tx.AgoraTxTypeSetToken, &tx.SetTokenTx{Address: addr, Type: args[1], Name: args[2]})
			},
		},
		{
			Use:   "set-threshold <amount>",
			Short: "Set the minimum token threshold (owner)",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				amount, err := uint256.FromDecimal(args[0])
				if err != nil {
					return fmt.Errorf("invalid amount %q: %w", args[0], err)
				}
				return sendTx(tx.AgoraTxTypeSetThreshold, &tx.SetThresholdTx{Amount: amount})
			},
		},
		{
			Use:   "submit <end-time> <ipfs-hash>",
			Short: "Submit a proposal; end-time is RFC3339 or a duration from now such as 72h",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				end, err := parseEndTime(args[0], time.Now())
				if err != nil {
					return err
				}
				return sendTx(tx.AgoraTxTypeSubmitProposal, &tx.SubmitProposalTx{EndTime: end.Unix(), IpfsHash: args[1]})
			},
		},
		{
			Use:   "vote <proposal> <for|against|abstain>",
			Short: "Vote on an active proposal",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := strconv.ParseUint(args[0], 10, 64)
				if err != nil {
					return err
				}
				if _, ok := types.ParseVoteChoice(args[1]); !ok {
					return fmt.Errorf("invalid vote %q", args[1])
				}
				return sendTx(tx.AgoraTxTypeVote, &tx.VoteTx{Proposal: id, Vote: args[1]})
			},
		},
		{
			Use:   "cancel <proposal>",
			Short: "Cancel your proposal within the grace window",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := strconv.ParseUint(args[0], 10, 64)
				if err != nil {
					return err
				}
				return sendTx(tx.AgoraTxTypeCancelProposal, &tx.CancelProposalTx{Proposal: id})
			},
		},
		{
			Use:   "close <proposal>",
			Short: "Close a proposal whose end time has passed",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := strconv.ParseUint(args[0], 10, 64)
				if err != nil {
					return err
				}
				return sendTx(tx.AgoraTxTypeCloseProposal, &tx.CloseProposalTx{Proposal: id})
			},
		},
	}
	for _, cmd := range cmds {
		urlFlag(cmd, &txArgs.Url)
		keyFlag(cmd, &txArgs.Key)
		cmd.Flags().Int64VarP(&txArgs.Nonce, "nonce", "n", -1, "account nonce, queried when negative")
	}
	return cmds
}

func parseEndTime(s string, now time.Time) (time.Time, error) {
	if d, err := time.ParseDuration(s); err == nil {
		return now.Add(d), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid end time %q", s)
	}
	return t, nil
}

func sendTx(typ tx.AgoraTxType, payload any) error {
	key, err := crypto.LoadKey(txArgs.Key)
	if err != nil {
		return err
	}
	cli, err := http.New(txArgs.Url, "/websocket")
	if err != nil {
		return fmt.Errorf("new client: %w", err)
	}
	ctx := context.Background()
	gres, err := cli.Genesis(ctx)
	if err != nil {
		return fmt.Errorf("get chain genesis: %w", err)
	}
	chainId := gres.Genesis.ChainID

	nonce := uint64(txArgs.Nonce)
	if txArgs.Nonce < 0 {
		var act app.AccountInfo
		if err = abciQuery(ctx, cli, "/account", &app.QueryParams{Address: key.Address()}, &act); err != nil {
			return err
		}
		nonce = act.Nonce
	}
	btx := &tx.AgoraTx{
		Version: tx.AgoraTxVersion1,
		Type:    typ,
		Nonce:   nonce,
		Tx:      payload,
	}
	if err = key.SignTx(btx, chainId); err != nil {
		return fmt.Errorf("sign tx: %w", err)
	}
	dat, err := tx.MarshalAgoraTx(btx)
	if err != nil {
		return err
	}
	res, err := cli.BroadcastTxSync(ctx, dat)
	if err != nil {
		return fmt.Errorf("broadcast tx: %w", err)
	}
	out, _ := json.Marshal(res)
	fmt.Println(string(out))
	if res.Code != 0 {
		return errors.New(res.Log)
	}
	return nil
}
