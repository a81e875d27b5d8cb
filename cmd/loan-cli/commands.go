package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/urfave/cli/v2"

	"loanft/core"
	"loanft/core/types"
	"loanft/crypto"
	"loanft/rpc"
)

var cmdGenerateKey = &cli.Command{
	Name:  "generate-key",
	Usage: "create a new key and store it in an encrypted keystore",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "out", Usage: "keystore output path", Value: "wallet.json"},
	},
	Action: func(cctx *cli.Context) error {
		key, err := crypto.GeneratePrivateKey()
		if err != nil {
			return fmt.Errorf("failed to generate key: %w", err)
		}
		path := cctx.String("out")
		if err := saveKeystore(path, key); err != nil {
			return err
		}
		fmt.Fprintf(cctx.App.Writer, "New key saved to %s\n", path)
		fmt.Fprintf(cctx.App.Writer, "Address: %s\n", key.PubKey().Address().String())
		return nil
	},
}

var cmdAddress = &cli.Command{
	Name:  "address",
	Usage: "print the signer address",
	Action: func(cctx *cli.Context) error {
		addr, err := signerAddress(cctx)
		if err != nil {
			return err
		}
		fmt.Fprintln(cctx.App.Writer, addr.String())
		return nil
	},
}

var cmdBalance = &cli.Command{
	Name:      "balance",
	Usage:     "show the native balance and nonce of an address",
	ArgsUsage: "[address]",
	Action: func(cctx *cli.Context) error {
		addr, err := addressArgOrSelf(cctx, 0)
		if err != nil {
			return err
		}
		var res rpc.BalanceResult
		if err := clientFor(cctx).callInto(cctx.Context, &res, "bank_getBalance", addr); err != nil {
			return err
		}
		balance, err := parseBigString(res.Balance)
		if err != nil {
			return err
		}
		fmt.Fprintf(cctx.App.Writer, "Address: %s\n", res.Address)
		if cctx.Bool("base-units") {
			fmt.Fprintf(cctx.App.Writer, "Balance: %s\n", balance.String())
		} else {
			fmt.Fprintf(cctx.App.Writer, "Balance: %s\n", formatAmount(balance))
		}
		fmt.Fprintf(cctx.App.Writer, "Nonce: %d\n", res.Nonce)
		return nil
	},
}

var cmdTransfer = &cli.Command{
	Name:      "transfer",
	Usage:     "send native currency",
	ArgsUsage: "<recipient> <amount>",
	Action: func(cctx *cli.Context) error {
		if cctx.NArg() != 2 {
			return errors.New("usage: transfer <recipient> <amount>")
		}
		to, err := crypto.ParseAddress(cctx.Args().Get(0))
		if err != nil {
			return fmt.Errorf("invalid recipient: %w", err)
		}
		amount, err := parseAmount(cctx.Args().Get(1), cctx.Bool("base-units"))
		if err != nil {
			return err
		}
		if amount.Sign() == 0 {
			return errors.New("amount must be positive")
		}
		return submit(cctx, types.TxTypeTransfer, to[:], amount, nil)
	},
}

var cmdApprove = &cli.Command{
	Name:      "approve",
	Usage:     "let an operator move every asset you hold in a registry",
	ArgsUsage: "<registry> <operator>",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "revoke", Usage: "revoke instead of grant"},
	},
	Action: func(cctx *cli.Context) error {
		if cctx.NArg() != 2 {
			return errors.New("usage: approve <registry> <operator>")
		}
		registry, err := crypto.ParseAddress(cctx.Args().Get(0))
		if err != nil {
			return fmt.Errorf("invalid registry: %w", err)
		}
		operator := strings.TrimSpace(cctx.Args().Get(1))
		if _, err := crypto.ParseAddress(operator); err != nil {
			return fmt.Errorf("invalid operator: %w", err)
		}
		return submit(cctx, types.TxTypeApprove, registry[:], nil, types.ApprovePayload{
			Operator: operator,
			Approved: !cctx.Bool("revoke"),
		})
	},
}

var cmdMintCollateral = &cli.Command{
	Name:      "mint-collateral",
	Usage:     "issue a collateral token (registry minter only)",
	ArgsUsage: "<registry> <recipient> <asset-id>",
	Action: func(cctx *cli.Context) error {
		registry, recipient, id, err := registryRecipientID(cctx, "mint-collateral")
		if err != nil {
			return err
		}
		return submit(cctx, types.TxTypeMintCollateral, registry[:], nil, types.MintCollateralPayload{
			Recipient: recipient,
			AssetID:   id,
		})
	},
}

var cmdMintUnits = &cli.Command{
	Name:      "mint-units",
	Usage:     "issue fungible units (registry minter only)",
	ArgsUsage: "<registry> <recipient> <asset-id> <units>",
	Action: func(cctx *cli.Context) error {
		registry, recipient, id, err := registryRecipientID(cctx, "mint-units")
		if err != nil {
			return err
		}
		units, err := parseUnits(cctx.Args().Get(3))
		if err != nil {
			return err
		}
		return submit(cctx, types.TxTypeMintUnits, registry[:], nil, types.MintUnitsPayload{
			Recipient: recipient,
			AssetID:   id,
			Amount:    units,
		})
	},
}

var cmdTransferCollateral = &cli.Command{
	Name:      "transfer-collateral",
	Usage:     "move a collateral token you own",
	ArgsUsage: "<registry> <recipient> <asset-id>",
	Action: func(cctx *cli.Context) error {
		registry, recipient, id, err := registryRecipientID(cctx, "transfer-collateral")
		if err != nil {
			return err
		}
		return submit(cctx, types.TxTypeTransferCollateral, registry[:], nil, types.TransferCollateralPayload{
			Recipient: recipient,
			AssetID:   id,
		})
	},
}

var cmdTransferUnits = &cli.Command{
	Name:      "transfer-units",
	Usage:     "move fungible units you hold",
	ArgsUsage: "<registry> <recipient> <asset-id> <units>",
	Action: func(cctx *cli.Context) error {
		registry, recipient, id, err := registryRecipientID(cctx, "transfer-units")
		if err != nil {
			return err
		}
		units, err := parseUnits(cctx.Args().Get(3))
		if err != nil {
			return err
		}
		return submit(cctx, types.TxTypeTransferUnits, registry[:], nil, types.TransferUnitsPayload{
			Recipient: recipient,
			AssetID:   id,
			Amount:    units,
		})
	},
}

var cmdCreateLoan = &cli.Command{
	Name:  "create-loan",
	Usage: "deploy a new loan escrow",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "borrower", Usage: "borrower address (defaults to the signer)"},
		&cli.StringFlag{Name: "collateral-registry", Required: true},
		&cli.StringFlag{Name: "requested-registry", Required: true},
		&cli.StringFlag{Name: "interest-registry", Required: true},
		&cli.Uint64Flag{Name: "collateral-id", Usage: "collateral token id"},
		&cli.Uint64Flag{Name: "requested-id", Usage: "id of the asset to borrow"},
		&cli.Uint64Flag{Name: "time-to-pay", Usage: "repayment window in seconds"},
		&cli.StringFlag{Name: "fee", Usage: "loan fee paid on each commitment", Value: "0"},
		&cli.StringFlag{Name: "commission-wallet", Required: true},
		&cli.StringFlag{Name: "interest-units", Usage: "interest units staked by the borrower"},
		&cli.StringFlag{Name: "requested-units", Usage: "requested units supplied by the lender"},
	},
	Action: func(cctx *cli.Context) error {
		borrower := strings.TrimSpace(cctx.String("borrower"))
		if borrower == "" {
			self, err := signerAddress(cctx)
			if err != nil {
				return err
			}
			borrower = self.String()
		}
		for _, name := range []string{"collateral-registry", "requested-registry", "interest-registry", "commission-wallet"} {
			if _, err := crypto.ParseAddress(cctx.String(name)); err != nil {
				return fmt.Errorf("invalid --%s: %w", name, err)
			}
		}
		fee, err := parseAmount(cctx.String("fee"), cctx.Bool("base-units"))
		if err != nil {
			return fmt.Errorf("invalid --fee: %w", err)
		}
		payload := types.CreateLoanPayload{
			Borrower:           borrower,
			CollateralRegistry: strings.TrimSpace(cctx.String("collateral-registry")),
			RequestedRegistry:  strings.TrimSpace(cctx.String("requested-registry")),
			InterestRegistry:   strings.TrimSpace(cctx.String("interest-registry")),
			CollateralAssetID:  cctx.Uint64("collateral-id"),
			RequestedAssetID:   cctx.Uint64("requested-id"),
			TimeToPay:          cctx.Uint64("time-to-pay"),
			LoanFee:            fee,
			CommissionWallet:   strings.TrimSpace(cctx.String("commission-wallet")),
		}
		if raw := cctx.String("interest-units"); raw != "" {
			if payload.InterestUnits, err = parseUnits(raw); err != nil {
				return err
			}
		}
		if raw := cctx.String("requested-units"); raw != "" {
			if payload.RequestedUnits, err = parseUnits(raw); err != nil {
				return err
			}
		}
		return submit(cctx, types.TxTypeCreateLoan, nil, nil, payload)
	},
}

var cmdBorrow = &cli.Command{
	Name:      "borrow",
	Usage:     "stake collateral and interest into an escrow, paying the loan fee",
	ArgsUsage: "<escrow>",
	Flags: []cli.Flag{
		&cli.Uint64Flag{Name: "collateral-id", Usage: "collateral token id"},
		&cli.Uint64Flag{Name: "interest-id", Usage: "interest asset id"},
		&cli.StringFlag{Name: "fee", Usage: "override the fee read from the escrow"},
	},
	Action: func(cctx *cli.Context) error {
		escrow, fee, err := escrowAndFee(cctx, "borrow")
		if err != nil {
			return err
		}
		return submit(cctx, types.TxTypeCommitCollateral, escrow[:], fee, types.CommitCollateralPayload{
			CollateralAssetID: cctx.Uint64("collateral-id"),
			InterestAssetID:   cctx.Uint64("interest-id"),
		})
	},
}

var cmdLend = &cli.Command{
	Name:      "lend",
	Usage:     "supply the requested asset to an escrow, paying the loan fee",
	ArgsUsage: "<escrow>",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "fee", Usage: "override the fee read from the escrow"},
	},
	Action: func(cctx *cli.Context) error {
		escrow, fee, err := escrowAndFee(cctx, "lend")
		if err != nil {
			return err
		}
		return submit(cctx, types.TxTypeCommitRequestedAsset, escrow[:], fee, nil)
	},
}

var cmdLoan = &cli.Command{
	Name:      "loan",
	Usage:     "show an escrow, or list all escrows when no address is given",
	ArgsUsage: "[escrow]",
	Action: func(cctx *cli.Context) error {
		client := clientFor(cctx)
		if cctx.NArg() == 0 {
			var res []rpc.EscrowResult
			if err := client.callInto(cctx.Context, &res, "loan_list"); err != nil {
				return err
			}
			return printJSON(cctx, res)
		}
		escrow, err := crypto.ParseAddress(cctx.Args().First())
		if err != nil {
			return fmt.Errorf("invalid escrow: %w", err)
		}
		var res rpc.EscrowResult
		if err := client.callInto(cctx.Context, &res, "loan_get", crypto.FromRaw(escrow).String()); err != nil {
			return err
		}
		return printJSON(cctx, res)
	},
}

var cmdEvents = &cli.Command{
	Name:      "events",
	Usage:     "list events of an escrow, or the global log when no escrow is given",
	ArgsUsage: "[escrow]",
	Flags: []cli.Flag{
		&cli.Uint64Flag{Name: "after", Usage: "only events with a greater sequence"},
		&cli.Uint64Flag{Name: "limit", Usage: "maximum number of events", Value: 100},
	},
	Action: func(cctx *cli.Context) error {
		client := clientFor(cctx)
		var res []rpc.EventResult
		if cctx.NArg() == 0 {
			if err := client.callInto(cctx.Context, &res, "events_since", cctx.Uint64("after"), cctx.Uint64("limit")); err != nil {
				return err
			}
			return printJSON(cctx, res)
		}
		escrow, err := crypto.ParseAddress(cctx.Args().First())
		if err != nil {
			return fmt.Errorf("invalid escrow: %w", err)
		}
		if err := client.callInto(cctx.Context, &res, "loan_listEvents", crypto.FromRaw(escrow).String()); err != nil {
			return err
		}
		return printJSON(cctx, res)
	},
}

// submit signs a transaction for the current signer and sends it to the node.
// A failed receipt is printed and reported as an error.
func submit(cctx *cli.Context, txType types.TxType, to []byte, value *big.Int, payload interface{}) error {
	key, err := loadSigner(cctx)
	if err != nil {
		return err
	}
	client := clientFor(cctx)

	chainID := cctx.Uint64("chain-id")
	if chainID == 0 {
		if err := client.callInto(cctx.Context, &chainID, "node_chainId"); err != nil {
			return fmt.Errorf("failed to query chain id: %w", err)
		}
	}
	var nonce uint64
	if err := client.callInto(cctx.Context, &nonce, "bank_getNonce", key.PubKey().Address().String()); err != nil {
		return fmt.Errorf("failed to query nonce: %w", err)
	}

	if value == nil {
		value = big.NewInt(0)
	}
	tx := &types.Transaction{
		ChainID: chainID,
		Type:    txType,
		Nonce:   nonce,
		To:      to,
		Value:   value,
	}
	if payload != nil {
		if tx.Data, err = types.EncodePayload(payload); err != nil {
			return err
		}
	}
	if err := tx.Sign(key.PrivateKey); err != nil {
		return fmt.Errorf("failed to sign transaction: %w", err)
	}

	raw, err := client.call(cctx.Context, "loan_sendTransaction", true, tx)
	if err != nil {
		var rpcErr *rpc.RPCError
		if errors.As(err, &rpcErr) && rpcErr.Data != nil {
			if receipt, ok := decodeReceipt(rpcErr.Data); ok {
				printReceipt(cctx, receipt)
			}
			return fmt.Errorf("transaction failed: %s", rpcErr.Message)
		}
		return err
	}
	var receipt core.Receipt
	if err := json.Unmarshal(raw, &receipt); err != nil {
		return fmt.Errorf("failed to decode receipt: %w", err)
	}
	printReceipt(cctx, &receipt)
	return nil
}

func decodeReceipt(data interface{}) (*core.Receipt, bool) {
	encoded, err := json.Marshal(data)
	if err != nil {
		return nil, false
	}
	var receipt core.Receipt
	if err := json.Unmarshal(encoded, &receipt); err != nil || receipt.TxHash == "" {
		return nil, false
	}
	return &receipt, true
}

func printReceipt(cctx *cli.Context, r *core.Receipt) {
	w := cctx.App.Writer
	fmt.Fprintf(w, "Transaction: %s\n", r.TxHash)
	fmt.Fprintf(w, "Type: %s\n", r.Type)
	fmt.Fprintf(w, "Status: %s\n", r.Status)
	if r.Escrow != "" {
		fmt.Fprintf(w, "Escrow: %s\n", r.Escrow)
	}
	if r.Error != "" {
		fmt.Fprintf(w, "Reason: %s (%s)\n", r.Error, r.ErrorKind)
	}
	for _, ev := range r.Events {
		if ev == nil {
			continue
		}
		fmt.Fprintf(w, "  event %s %v\n", ev.Type, ev.Attributes)
	}
}

func printJSON(cctx *cli.Context, v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cctx.App.Writer, string(out))
	return nil
}

func addressArgOrSelf(cctx *cli.Context, idx int) (string, error) {
	if cctx.NArg() > idx {
		raw := strings.TrimSpace(cctx.Args().Get(idx))
		if _, err := crypto.ParseAddress(raw); err != nil {
			return "", fmt.Errorf("invalid address: %w", err)
		}
		return raw, nil
	}
	addr, err := signerAddress(cctx)
	if err != nil {
		return "", err
	}
	return addr.String(), nil
}

func registryRecipientID(cctx *cli.Context, name string) ([20]byte, string, uint64, error) {
	want := 3
	if strings.HasSuffix(name, "-units") {
		want = 4
	}
	if cctx.NArg() != want {
		return [20]byte{}, "", 0, fmt.Errorf("usage: %s %s", name, cctx.Command.ArgsUsage)
	}
	registry, err := crypto.ParseAddress(cctx.Args().Get(0))
	if err != nil {
		return [20]byte{}, "", 0, fmt.Errorf("invalid registry: %w", err)
	}
	recipient := strings.TrimSpace(cctx.Args().Get(1))
	if _, err := crypto.ParseAddress(recipient); err != nil {
		return [20]byte{}, "", 0, fmt.Errorf("invalid recipient: %w", err)
	}
	id, err := parseBigString(cctx.Args().Get(2))
	if err != nil || !id.IsUint64() {
		return [20]byte{}, "", 0, fmt.Errorf("invalid asset id %q", cctx.Args().Get(2))
	}
	return registry, recipient, id.Uint64(), nil
}

// escrowAndFee parses the escrow argument and resolves the fee to attach,
// reading it from the escrow unless --fee overrides it.
func escrowAndFee(cctx *cli.Context, name string) ([20]byte, *big.Int, error) {
	if cctx.NArg() != 1 {
		return [20]byte{}, nil, fmt.Errorf("usage: %s <escrow>", name)
	}
	escrow, err := crypto.ParseAddress(cctx.Args().First())
	if err != nil {
		return [20]byte{}, nil, fmt.Errorf("invalid escrow: %w", err)
	}
	if raw := cctx.String("fee"); raw != "" {
		fee, err := parseAmount(raw, cctx.Bool("base-units"))
		return escrow, fee, err
	}
	var res rpc.EscrowResult
	if err := clientFor(cctx).callInto(cctx.Context, &res, "loan_get", crypto.FromRaw(escrow).String()); err != nil {
		return [20]byte{}, nil, err
	}
	fee, err := parseBigString(res.LoanFee)
	if err != nil {
		return [20]byte{}, nil, fmt.Errorf("escrow reported invalid fee: %w", err)
	}
	return escrow, fee, nil
}
