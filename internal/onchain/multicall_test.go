package onchain

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
)

func newTestMulticall(t *testing.T) *Multicall {
	t.Helper()
	m, err := NewMulticall(nil,
		"0xcA11bde05977b3631167028862bE2a173976CA11",
		"0x2791Bca1f2de4661ED88A30C99A7a9449Aa84174")
	if err != nil {
		t.Fatalf("new multicall: %v", err)
	}
	return m
}

func TestMulticall_PacksOneCallPerHolder(t *testing.T) {
	m := newTestMulticall(t)

	holders := []common.Address{
		common.HexToAddress("0x1111111111111111111111111111111111111111"),
		common.HexToAddress("0x2222222222222222222222222222222222222222"),
	}

	calls := make([]multicallCall, len(holders))
	for i, holder := range holders {
		data, err := m.erc20ABI.Pack("balanceOf", holder)
		if err != nil {
			t.Fatalf("pack balanceOf: %v", err)
		}
		calls[i] = multicallCall{Target: m.tokenAddr, CallData: data}
	}

	input, err := m.mcABI.Pack("aggregate", calls)
	if err != nil {
		t.Fatalf("pack aggregate: %v", err)
	}
	// 4-byte selector plus ABI-encoded calls array.
	if len(input) <= 4 {
		t.Fatalf("aggregate call data too short: %d bytes", len(input))
	}

	// balanceOf selector is 0x70a08231; each inner call must carry it.
	for i, call := range calls {
		if got := common.Bytes2Hex(call.CallData[:4]); got != "70a08231" {
			t.Fatalf("call %d selector = %s, want 70a08231", i, got)
		}
		if call.Target != m.tokenAddr {
			t.Fatalf("call %d targets %s, want token", i, call.Target.Hex())
		}
	}
}

func TestMulticall_DecodeAggregate(t *testing.T) {
	m := newTestMulticall(t)

	// Encode a fake aggregate response: block number + two uint256 balances.
	want := []*big.Int{big.NewInt(10_000_000), big.NewInt(5_500_000)}
	returnData := make([][]byte, len(want))
	for i, bal := range want {
		returnData[i] = common.LeftPadBytes(bal.Bytes(), 32)
	}

	output, err := m.mcABI.Methods["aggregate"].Outputs.Pack(big.NewInt(123456), returnData)
	if err != nil {
		t.Fatalf("pack outputs: %v", err)
	}

	balances, err := m.decodeAggregate(output, 2)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	for i, bal := range balances {
		if bal.Cmp(want[i]) != 0 {
			t.Fatalf("balance %d = %s, want %s", i, bal, want[i])
		}
	}
}

func TestMulticall_DecodeAggregate_CountMismatch(t *testing.T) {
	m := newTestMulticall(t)

	output, err := m.mcABI.Methods["aggregate"].Outputs.Pack(big.NewInt(1), [][]byte{
		common.LeftPadBytes(big.NewInt(7).Bytes(), 32),
	})
	if err != nil {
		t.Fatalf("pack outputs: %v", err)
	}

	if _, err := m.decodeAggregate(output, 3); err == nil {
		t.Fatal("expected error when result count does not match holder count")
	}
}

func TestProxyWalletDeriver(t *testing.T) {
	d := NewProxyWalletDeriver(
		"0xaB45c5A4B0c941a2F231C04C3f49182e1A254052",
		"0xd2b1d046f3246c224b340e52fa9bd80b0b1562e25e9691e2b8a0ba27365b47d5")

	owner := common.HexToAddress("0x3333333333333333333333333333333333333333")
	other := common.HexToAddress("0x4444444444444444444444444444444444444444")

	first := d.Derive(owner)
	if first != d.Derive(owner) {
		t.Fatal("derivation must be deterministic")
	}
	if first == d.Derive(other) {
		t.Fatal("different owners must derive different proxy wallets")
	}
	if first == (common.Address{}) {
		t.Fatal("derived the zero address")
	}

	// A different factory yields a different wallet for the same owner.
	d2 := NewProxyWalletDeriver(
		"0x0000000000000000000000000000000000000001",
		"0xd2b1d046f3246c224b340e52fa9bd80b0b1562e25e9691e2b8a0ba27365b47d5")
	if first == d2.Derive(owner) {
		t.Fatal("factory address must affect the derived wallet")
	}
}
