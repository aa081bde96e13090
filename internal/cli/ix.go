package cli

import (
	"encoding/hex"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/shadowlend/shadowlend/internal/instruction"
	"github.com/shadowlend/shadowlend/internal/output"
	"github.com/shadowlend/shadowlend/internal/pubkey"
	lenderr "github.com/shadowlend/shadowlend/pkg/errors"
)

// ixCmd is the parent command for instruction building.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var ixCmd = &cobra.Command{
	Use:   "ix",
	Short: "Build ShadowLend program instructions",
	Long: `Build ShadowLend program instructions for the connected account.

The signer is the account of the resumed wallet session; --account builds
for another account without a session. Confidential instructions (deposit,
withdraw, borrow, repay, liquidate, spend) queue an Arcium computation: the
MPC accounts and price oracles are read from --accounts, a YAML file with
"arcium" and "oracles" sections (default: <home>/accounts.yaml).`,
}

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var (
	ixPoolInitCmd = &cobra.Command{
		Use:   "pool-init",
		Short: "Create the pool and its vaults",
		Long: `Build initialize_pool for the configured mint pair. Risk parameters
are basis points; the liquidation threshold must not be below the LTV.`,
		Example: `  shadowlend ix pool-init --ltv 8000 --liquidation-threshold 8500`,
		Args:    cobra.NoArgs,
		RunE:    runIxPoolInit,
	}
	ixPoolUpdateCmd = &cobra.Command{
		Use:     "pool-update",
		Short:   "Change the pool's LTV and liquidation threshold",
		Long:    `Build update_pool. Only the pool authority can execute it.`,
		Example: `  shadowlend ix pool-update --ltv 7500 --liquidation-threshold 8000`,
		Args:    cobra.NoArgs,
		RunE:    runIxPoolUpdate,
	}
	ixPoolCloseCmd = &cobra.Command{
		Use:     "pool-close",
		Short:   "Close the pool",
		Long:    `Build close_pool, returning the pool's rent to the authority.`,
		Example: `  shadowlend ix pool-close`,
		Args:    cobra.NoArgs,
		RunE:    runIxPoolClose,
	}
	ixDepositCmd = &cobra.Command{
		Use:     "deposit <amount>",
		Short:   "Deposit collateral",
		Long:    `Build deposit, moving collateral from your token account into the pool.`,
		Example: `  shadowlend ix deposit 1.5`,
		Args:    cobra.ExactArgs(1),
		RunE:    runIxUser(instruction.NameDeposit),
	}
	ixWithdrawCmd = &cobra.Command{
		Use:     "withdraw <amount>",
		Short:   "Withdraw collateral",
		Long:    `Build withdraw. The transfer happens only if the position stays healthy.`,
		Example: `  shadowlend ix withdraw 0.25`,
		Args:    cobra.ExactArgs(1),
		RunE:    runIxUser(instruction.NameWithdraw),
	}
	ixBorrowCmd = &cobra.Command{
		Use:   "borrow",
		Short: "Borrow against collateral",
		Long: `Build borrow. The amount travels encrypted for the MXE: pass the
32-byte ciphertext as hex.`,
		Example: `  shadowlend ix borrow --ciphertext 0f1e...`,
		Args:    cobra.NoArgs,
		RunE:    runIxBorrow,
	}
	ixRepayCmd = &cobra.Command{
		Use:     "repay <amount>",
		Short:   "Repay debt",
		Long:    `Build repay, moving borrow-asset tokens back into the pool.`,
		Example: `  shadowlend ix repay 100`,
		Args:    cobra.ExactArgs(1),
		RunE:    runIxUser(instruction.NameRepay),
	}
	ixSpendCmd = &cobra.Command{
		Use:   "spend <amount>",
		Short: "Pay out of the internal balance",
		Long: `Build spend. Borrowed funds are paid to --destination, or to your
own borrow-asset token account.`,
		Example: `  shadowlend ix spend 25 --destination <token-account>`,
		Args:    cobra.ExactArgs(1),
		RunE:    runIxUser(instruction.NameSpend),
	}
	ixLiquidateCmd = &cobra.Command{
		Use:     "liquidate <borrower> <amount>",
		Short:   "Liquidate an unhealthy position",
		Long:    `Build liquidate, repaying part of the borrower's debt for a share of the collateral.`,
		Example: `  shadowlend ix liquidate <borrower> 50`,
		Args:    cobra.ExactArgs(2),
		RunE:    runIxLiquidate,
	}
	ixPDACmd = &cobra.Command{
		Use:   "pda",
		Short: "Show the program addresses of the market",
		Long: `Derive the pool, vault and signer addresses of the configured market,
and the obligation of --user when given.`,
		Example: `  shadowlend ix pda
  shadowlend ix pda --user <account>`,
		Args: cobra.NoArgs,
		RunE: runIxPDA,
	}
	ixDecodeCmd = &cobra.Command{
		Use:     "decode <base64>",
		Short:   "Decode instruction data",
		Long:    `Identify a ShadowLend instruction from its base64 data and print its arguments.`,
		Example: `  shadowlend ix decode 8iPGiVLh8rYqAAAAAAAAAA...`,
		Args:    cobra.ExactArgs(1),
		RunE:    runIxDecode,
	}
	ixErrorsCmd = &cobra.Command{
		Use:   "errors [code|log-line]",
		Short: "Explain program error codes",
		Long: `List the program's error codes, or explain one given as a number or
found in a transaction log line.`,
		Example: `  shadowlend ix errors
  shadowlend ix errors 6003
  shadowlend ix errors "custom program error: 0x1773"`,
		Args: cobra.MaximumNArgs(1),
		RunE: runIxErrors,
	}
)

//nolint:gochecknoglobals // Cobra CLI pattern requires package-level flag variables
var (
	ixAccount      string
	ixAccountsFile string
	ixOffset       uint64
	ixDecimals     int
	ixLTV          uint16
	ixThreshold    uint16
	ixNewLTV       uint16
	ixNewThreshold uint16
	ixBonus        uint16
	ixBorrowRate   uint64
	ixCiphertext   string
	ixDestination  string
	ixPDAUser      string
)

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	ixCmd.GroupID = groupProgram
	rootCmd.AddCommand(ixCmd)

	defaults := instruction.DefaultRiskParams()
	ixPoolInitCmd.Flags().Uint16Var(&ixLTV, "ltv", defaults.LTV, "loan-to-value in basis points")
	ixPoolInitCmd.Flags().Uint16Var(&ixThreshold, "liquidation-threshold", defaults.LiquidationThreshold, "liquidation threshold in basis points")
	ixPoolInitCmd.Flags().Uint16Var(&ixBonus, "liquidation-bonus", defaults.LiquidationBonus, "liquidation bonus in basis points")
	ixPoolInitCmd.Flags().Uint64Var(&ixBorrowRate, "borrow-rate", defaults.FixedBorrowRate, "fixed borrow rate in basis points")

	ixPoolUpdateCmd.Flags().Uint16Var(&ixNewLTV, "ltv", 0, "loan-to-value in basis points (required)")
	ixPoolUpdateCmd.Flags().Uint16Var(&ixNewThreshold, "liquidation-threshold", 0, "liquidation threshold in basis points (required)")
	_ = ixPoolUpdateCmd.MarkFlagRequired("ltv")
	_ = ixPoolUpdateCmd.MarkFlagRequired("liquidation-threshold")

	for _, c := range []*cobra.Command{ixPoolInitCmd, ixPoolUpdateCmd, ixPoolCloseCmd} {
		c.Flags().StringVar(&ixAccount, "account", "", "pool authority (default: connected account)")
	}

	for _, c := range []*cobra.Command{ixDepositCmd, ixWithdrawCmd, ixBorrowCmd, ixRepayCmd, ixSpendCmd, ixLiquidateCmd} {
		c.Flags().StringVar(&ixAccount, "account", "", "signing account (default: connected account)")
		c.Flags().StringVar(&ixAccountsFile, "accounts", "", "YAML file with arcium and oracles accounts")
		c.Flags().Uint64Var(&ixOffset, "offset", 0, "computation offset (default: random)")
	}
	for _, c := range []*cobra.Command{ixDepositCmd, ixWithdrawCmd, ixRepayCmd, ixSpendCmd, ixLiquidateCmd} {
		c.Flags().IntVar(&ixDecimals, "decimals", -1, "token decimals of the amount (default: by mint)")
	}
	ixBorrowCmd.Flags().StringVar(&ixCiphertext, "ciphertext", "", "encrypted borrow amount, 32 bytes hex (required)")
	_ = ixBorrowCmd.MarkFlagRequired("ciphertext")
	ixSpendCmd.Flags().StringVar(&ixDestination, "destination", "", "token account to pay")
	ixPDACmd.Flags().StringVar(&ixPDAUser, "user", "", "also derive this account's obligation")
	actsForAccount(ixPoolInitCmd, ixPoolUpdateCmd, ixPoolCloseCmd,
		ixDepositCmd, ixWithdrawCmd, ixBorrowCmd, ixRepayCmd, ixSpendCmd, ixLiquidateCmd)

	ixCmd.AddCommand(ixPoolInitCmd, ixPoolUpdateCmd, ixPoolCloseCmd,
		ixDepositCmd, ixWithdrawCmd, ixBorrowCmd, ixRepayCmd, ixSpendCmd, ixLiquidateCmd,
		ixPDACmd, ixDecodeCmd, ixErrorsCmd)
}

// market reads the program and mints from configuration.
func (c *CommandContext) market() (instruction.Market, error) {
	var m instruction.Market
	fields := []struct {
		key string
		val string
		dst *pubkey.Key
	}{
		{"program.id", c.Cfg.Program.ID, &m.ProgramID},
		{"program.collateral_mint", c.Cfg.Program.CollateralMint, &m.CollateralMint},
		{"program.borrow_mint", c.Cfg.Program.BorrowMint, &m.BorrowMint},
	}
	for _, f := range fields {
		k, err := pubkey.Parse(f.val)
		if err != nil {
			return m, lenderr.WithSuggestion(
				lenderr.WithDetails(lenderr.ErrConfigInvalid, map[string]string{"key": f.key, "value": f.val}),
				fmt.Sprintf("set it with 'shadowlend config set %s <pubkey>'", f.key),
			)
		}
		*f.dst = k
	}
	return m, nil
}

// networkAccounts is the --accounts document.
type networkAccounts struct {
	Arcium  instruction.ArciumAccounts `yaml:"arcium"`
	Oracles instruction.Oracles        `yaml:"oracles"`
}

func (c *CommandContext) loadNetworkAccounts(path string) (*networkAccounts, error) {
	if path == "" {
		path = c.path(accountsFileName)
	}
	data, err := os.ReadFile(path) //nolint:gosec // G304: user-selected accounts file
	if err != nil {
		if os.IsNotExist(err) {
			return nil, lenderr.WithSuggestion(
				lenderr.WithDetails(lenderr.ErrNotFound, map[string]string{"accounts_file": path}),
				"write the cluster's Arcium and oracle accounts there or pass --accounts",
			)
		}
		return nil, err
	}
	var na networkAccounts
	if err := yaml.Unmarshal(data, &na); err != nil {
		return nil, lenderr.WithDetails(lenderr.ErrConfigInvalid, map[string]string{"accounts_file": path, "reason": err.Error()})
	}
	return &na, nil
}

// encryptionView reports the inputs the result will be encrypted to.
type encryptionView struct {
	UserPublicKey string `json:"user_pubkey"`
	Nonce         string `json:"nonce"`
	Offset        uint64 `json:"computation_offset"`
}

type ixView struct {
	*instruction.Instruction
	Encryption *encryptionView `json:"encryption,omitempty"`
}

// confidential prepares the computation inputs of a user instruction.
func (c *CommandContext) confidential(accts *networkAccounts) (instruction.Computation, *encryptionView, error) {
	ec, err := instruction.NewEncryptionContext()
	if err != nil {
		return instruction.Computation{}, nil, err
	}
	defer ec.Destroy()

	offset := ixOffset
	if offset == 0 {
		if offset, err = instruction.NewComputationOffset(); err != nil {
			return instruction.Computation{}, nil, err
		}
	}
	comp := ec.Computation(offset, accts.Arcium)
	view := &encryptionView{
		UserPublicKey: hex.EncodeToString(comp.UserPublicKey[:]),
		Nonce:         comp.Nonce.String(),
		Offset:        offset,
	}
	return comp, view, nil
}

func runIxPoolInit(cmd *cobra.Command, _ []string) error {
	return buildAdmin(cmd, func(m instruction.Market, authority pubkey.Key) (*instruction.Instruction, error) {
		return instruction.InitializePool(m, authority, instruction.RiskParams{
			LTV:                  ixLTV,
			LiquidationThreshold: ixThreshold,
			LiquidationBonus:     ixBonus,
			FixedBorrowRate:      ixBorrowRate,
		})
	})
}

func runIxPoolUpdate(cmd *cobra.Command, _ []string) error {
	return buildAdmin(cmd, func(m instruction.Market, authority pubkey.Key) (*instruction.Instruction, error) {
		return instruction.UpdatePool(m, authority, ixNewLTV, ixNewThreshold)
	})
}

func runIxPoolClose(cmd *cobra.Command, _ []string) error {
	return buildAdmin(cmd, instruction.ClosePool)
}

func buildAdmin(cmd *cobra.Command, build func(instruction.Market, pubkey.Key) (*instruction.Instruction, error)) error {
	cc := GetCmdContext(cmd)
	m, err := cc.market()
	if err != nil {
		return err
	}
	ctx, cancel := contextWithTimeout(cmd, cc.sessionTimeout())
	defer cancel()
	authority, err := cc.connectedAccount(ctx, ixAccount)
	if err != nil {
		return err
	}
	ix, err := build(m, authority)
	if err != nil {
		return err
	}
	return cc.printInstruction(cmd, ixView{Instruction: ix})
}

// amountDecimals picks the decimals of an amount in mint.
func (c *CommandContext) amountDecimals(mint pubkey.Key, m instruction.Market) int {
	if ixDecimals >= 0 {
		return ixDecimals
	}
	if mint == m.BorrowMint {
		return instruction.DecimalsUSDC
	}
	return instruction.DecimalsSOL
}

// userInput is what every confidential instruction needs.
type userInput struct {
	req     instruction.Request
	oracles instruction.Oracles
	view    *encryptionView
}

// userRequest resolves the signer, amount and computation shared by user instructions.
func userRequest(cmd *cobra.Command, amount string, mintOf func(instruction.Market) pubkey.Key) (*userInput, error) {
	cc := GetCmdContext(cmd)
	m, err := cc.market()
	if err != nil {
		return nil, err
	}

	var base uint64
	if amount != "" {
		if base, err = instruction.ParseAmount(amount, cc.amountDecimals(mintOf(m), m)); err != nil {
			return nil, err
		}
	}

	accts, err := cc.loadNetworkAccounts(ixAccountsFile)
	if err != nil {
		return nil, err
	}

	ctx, cancel := contextWithTimeout(cmd, cc.sessionTimeout())
	defer cancel()
	user, err := cc.connectedAccount(ctx, ixAccount)
	if err != nil {
		return nil, err
	}

	comp, view, err := cc.confidential(accts)
	if err != nil {
		return nil, err
	}
	return &userInput{
		req:     instruction.Request{Market: m, User: user, Amount: base, Computation: comp},
		oracles: accts.Oracles,
		view:    view,
	}, nil
}

func collateralMint(m instruction.Market) pubkey.Key { return m.CollateralMint }
func borrowMint(m instruction.Market) pubkey.Key     { return m.BorrowMint }

func runIxUser(name string) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		mint := borrowMint
		if name == instruction.NameDeposit || name == instruction.NameWithdraw {
			mint = collateralMint
		}
		in, err := userRequest(cmd, args[0], mint)
		if err != nil {
			return err
		}
		req := in.req

		var ix *instruction.Instruction
		switch name {
		case instruction.NameDeposit:
			ix, err = instruction.Deposit(req)
		case instruction.NameWithdraw:
			ix, err = instruction.Withdraw(req)
		case instruction.NameRepay:
			ix, err = instruction.Repay(req)
		case instruction.NameSpend:
			var dest pubkey.Key
			if ixDestination != "" {
				if dest, err = parseAccountArg("destination", ixDestination); err != nil {
					return err
				}
			}
			ix, err = instruction.Spend(instruction.SpendRequest{Request: req, Destination: dest})
		default:
			return lenderr.WithDetails(lenderr.ErrInvalidInput, map[string]string{"instruction": name})
		}
		if err != nil {
			return err
		}
		return GetCmdContext(cmd).printInstruction(cmd, ixView{Instruction: ix, Encryption: in.view})
	}
}

func runIxBorrow(cmd *cobra.Command, _ []string) error {
	raw, err := hex.DecodeString(strings.TrimPrefix(ixCiphertext, "0x"))
	if err != nil || len(raw) != 32 {
		return lenderr.WithSuggestion(
			lenderr.WithDetails(lenderr.ErrInvalidInput, map[string]string{"ciphertext": ixCiphertext}),
			"pass exactly 32 bytes as 64 hex characters",
		)
	}
	var ct [32]byte
	copy(ct[:], raw)

	in, err := userRequest(cmd, "", borrowMint)
	if err != nil {
		return err
	}

	ix, err := instruction.Borrow(instruction.BorrowRequest{
		Market:      in.req.Market,
		User:        in.req.User,
		Ciphertext:  ct,
		Computation: in.req.Computation,
		Oracles:     in.oracles,
	})
	if err != nil {
		return err
	}
	return GetCmdContext(cmd).printInstruction(cmd, ixView{Instruction: ix, Encryption: in.view})
}

func runIxLiquidate(cmd *cobra.Command, args []string) error {
	borrower, err := parseAccountArg("borrower", args[0])
	if err != nil {
		return err
	}
	in, err := userRequest(cmd, args[1], borrowMint)
	if err != nil {
		return err
	}

	ix, err := instruction.Liquidate(instruction.LiquidateRequest{Request: in.req, Borrower: borrower, Oracles: in.oracles})
	if err != nil {
		return err
	}
	return GetCmdContext(cmd).printInstruction(cmd, ixView{Instruction: ix, Encryption: in.view})
}

func runIxPDA(cmd *cobra.Command, _ []string) error {
	cc := GetCmdContext(cmd)
	m, err := cc.market()
	if err != nil {
		return err
	}
	var user pubkey.Key
	if ixPDAUser != "" {
		if user, err = parseAccountArg("user", ixPDAUser); err != nil {
			return err
		}
	}

	addrs, err := m.Derive(user)
	if err != nil {
		return err
	}
	if cc.Fmt.IsJSON() {
		return cc.Fmt.Print(addrs)
	}

	tbl := output.NewTable("ACCOUNT", "ADDRESS")
	tbl.AddRow("pool", addrs.Pool.String())
	tbl.AddRow("collateral vault", addrs.CollateralVault.String())
	tbl.AddRow("borrow vault", addrs.BorrowVault.String())
	tbl.AddRow("signer", addrs.Signer.String())
	if addrs.Obligation != nil {
		tbl.AddRow("obligation", addrs.Obligation.String())
	}
	return tbl.Render(cmd.OutOrStdout())
}

func runIxDecode(cmd *cobra.Command, args []string) error {
	cc := GetCmdContext(cmd)
	d, err := instruction.DecodeBase64(args[0])
	if err != nil {
		return err
	}
	if cc.Fmt.IsJSON() {
		return cc.Fmt.Print(d)
	}

	w := cmd.OutOrStdout()
	outln(w, d.Name)
	keys := make([]string, 0, len(d.Args))
	for k := range d.Args {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	tbl := output.NewTable()
	tbl.SetNoHeader(true)
	for _, k := range keys {
		tbl.AddRow("  "+k, d.Args[k])
	}
	return tbl.Render(w)
}

func runIxErrors(cmd *cobra.Command, args []string) error {
	cc := GetCmdContext(cmd)

	list := instruction.ProgramErrors()
	if len(args) == 1 {
		pe, ok := lookupProgramError(args[0])
		if !ok {
			return lenderr.WithDetails(lenderr.ErrNotFound, map[string]string{"program_error": args[0]})
		}
		list = list[:0]
		list = append(list, pe)
	}

	if cc.Fmt.IsJSON() {
		if len(args) == 1 {
			return cc.Fmt.Print(list[0])
		}
		return cc.Fmt.Print(list)
	}
	tbl := output.NewTable("CODE", "HEX", "NAME", "MESSAGE")
	for _, pe := range list {
		tbl.AddRow(strconv.FormatUint(uint64(pe.Code), 10), fmt.Sprintf("0x%x", pe.Code), pe.Name, pe.Message)
	}
	return tbl.Render(cmd.OutOrStdout())
}

func lookupProgramError(arg string) (*instruction.ProgramError, bool) {
	if code, err := strconv.ParseUint(strings.TrimSpace(arg), 10, 32); err == nil {
		return instruction.LookupProgramError(uint32(code))
	}
	return instruction.ParseProgramError(arg)
}

func parseAccountArg(name, value string) (pubkey.Key, error) {
	k, err := pubkey.Parse(value)
	if err != nil {
		return pubkey.Zero, lenderr.WithDetails(lenderr.ErrInvalidPublicKey, map[string]string{name: value})
	}
	return k, nil
}

func (c *CommandContext) printInstruction(cmd *cobra.Command, v ixView) error {
	if c.Fmt.IsJSON() {
		return c.Fmt.Print(v)
	}

	w := cmd.OutOrStdout()
	out(w, "%-9s %s\n", "Name:", v.Name)
	out(w, "%-9s %s\n", "Program:", v.ProgramID)
	out(w, "%-9s %s\n", "Data:", v.Encode())
	if v.Encryption != nil {
		out(w, "%-9s %d\n", "Offset:", v.Encryption.Offset)
		out(w, "%-9s %s\n", "User key:", v.Encryption.UserPublicKey)
		out(w, "%-9s %s\n", "Nonce:", v.Encryption.Nonce)
	}
	outln(w)

	tbl := output.NewTable("#", "ACCOUNT", "SIGNER", "WRITABLE")
	tbl.SetAlign(0, output.AlignRight)
	for i, a := range v.Accounts {
		tbl.AddRow(strconv.Itoa(i), a.Key.String(), yesNo(a.IsSigner), yesNo(a.IsWritable))
	}
	return tbl.Render(w)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
