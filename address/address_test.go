package address

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidate_BitcoinForms(t *testing.T) {
	valid := []string{
		"1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa",             // legacy
		"3J98t1WpEZ73CNmQviecrnyiWrnqRhWNLy",             // script hash
		"bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4",     // native segwit
	}
	for _, addr := range valid {
		require.NoError(t, Validate("btc", addr), "address %s", addr)
		require.True(t, IsValid("BTC", addr))
	}
}

func TestValidate_BitcoinRejectsGarbage(t *testing.T) {
	invalid := []string{
		"",
		"<script>alert(1)</script>",
		"1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa<script>",
		"1A1zP1eP5QGefi2DMPTfTL5SLmv7D0OIl",  // 0, O, I, l are not base58
		"bc1qw508d6qejxtdg4y5r3zarvary0c5xb", // 'b' is not bech32
		"xyz",
		"0x742d35Cc6634C0532925a3b844Bc454e4438f44e", // wrong chain
	}
	for _, addr := range invalid {
		require.Error(t, Validate("btc", addr), "address %q should be invalid", addr)
	}
}

func TestValidate_Ethereum(t *testing.T) {
	require.NoError(t, Validate("eth", "0x742d35Cc6634C0532925a3b844Bc454e4438f44e"))
	require.Error(t, Validate("eth", "0x742d35Cc6634C0532925a3b844Bc454e4438f44"))  // short
	require.Error(t, Validate("eth", "742d35Cc6634C0532925a3b844Bc454e4438f44e00")) // no prefix
	require.Error(t, Validate("eth", "1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa"))
}

func TestValidate_USDTAcceptsERC20AndTRC20(t *testing.T) {
	require.NoError(t, Validate("usdt", "0x742d35Cc6634C0532925a3b844Bc454e4438f44e"))
	require.NoError(t, Validate("usdt", "TJRabPrwbZy45sbavfcjinPJC18kjpRTv8"))
	require.Error(t, Validate("usdt", "not-an-address"))
}

func TestValidate_UnknownCurrencyUsesGenericCheck(t *testing.T) {
	require.NoError(t, Validate("atom", "cosmos1vlad9w6rjs6xwmvuyl8z65d2c6chfvdbgssq21"))
	require.Error(t, Validate("atom", "<script>alert(1)</script>"))
	require.Error(t, Validate("atom", "short"))
}

func TestValidate_TrimsWhitespace(t *testing.T) {
	require.NoError(t, Validate("btc", "  1A1zP1eP5QGefi2DMPTfTL5SLmv7DivfNa  "))
}

func TestValidate_WrappedSentinel(t *testing.T) {
	err := Validate("btc", "nope")
	require.ErrorIs(t, err, ErrInvalidFormat)
}
