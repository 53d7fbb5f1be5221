package horizon

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifySearchWallet(t *testing.T) {
	searchType, err := ClassifySearch(testAccount)
	require.NoError(t, err)
	assert.Equal(t, SearchTypeWallet, searchType)
}

func TestClassifySearchTransactionHash(t *testing.T) {
	searchType, err := ClassifySearch("042dc803e27b9b49c6cccc5947025991168e0989345c2848dc0c6f183d0578e4")
	require.NoError(t, err)
	assert.Equal(t, SearchTypeTransaction, searchType)
}

func TestClassifySearchInvalid(t *testing.T) {
	for _, input := range []string{
		"",
		"GABC",
		testAccount[:55],
		testAccount + "A",
		strings.ToLower(testAccount),
		"X" + testAccount[1:],
		"042dc803e27b9b49c6cccc5947025991168e0989345c2848dc0c6f183d0578",
		"zzzdc803e27b9b49c6cccc5947025991168e0989345c2848dc0c6f183d0578e4",
		"not a search term",
	} {
		_, err := ClassifySearch(input)
		assert.ErrorIs(t, err, ErrInvalidSearch, "input %q", input)
	}
}

func TestValidateAccountID(t *testing.T) {
	assert.True(t, ValidateAccountID(testAccount))
	assert.False(t, ValidateAccountID("G1"+testAccount[2:]), "digit 1 is not in the base32 alphabet")
}

func TestValidateTransactionHash(t *testing.T) {
	assert.True(t, ValidateTransactionHash("042DC803E27B9B49C6CCCC5947025991168E0989345C2848DC0C6F183D0578E4"),
		"hex matching is case insensitive")
	assert.False(t, ValidateTransactionHash(testAccount))
}
