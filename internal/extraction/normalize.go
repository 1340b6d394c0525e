package extraction

import "strings"

// maxMerchantTokens is how many leading words of a merchant name are kept.
const maxMerchantTokens = 2

// NormalizeMerchant cleans a merchant name and truncates it to its first two
// whitespace-separated tokens. Nil stays nil, and a name that cleans to
// nothing becomes nil.
func NormalizeMerchant(merchant *string) *string {
	if merchant == nil {
		return nil
	}
	tokens := strings.Fields(CleanMerchant(*merchant))
	if len(tokens) == 0 {
		return nil
	}
	if len(tokens) > maxMerchantTokens {
		tokens = tokens[:maxMerchantTokens]
	}
	out := strings.Join(tokens, " ")
	return &out
}
