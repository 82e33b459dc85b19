package ledger

// Explorer bases for known networks. Unknown networks have no explorer;
// callers fall back to showing the raw transaction id.
var explorerBases = map[string]string{
	"mainnet": "https://etherscan.io/tx/",
	"sepolia": "https://sepolia.etherscan.io/tx/",
	"holesky": "https://holesky.etherscan.io/tx/",
	"local":   "",
}

// ExplorerURL returns the block-explorer link for a transaction on the
// given network, or "" when the network has none.
func ExplorerURL(network, transactionID string) string {
	base, ok := explorerBases[network]
	if !ok || base == "" || transactionID == "" {
		return ""
	}
	return base + transactionID
}

// ShortAddress abbreviates a long account address for display:
// "0x1234abcd...ef56". Short inputs come back unchanged.
func ShortAddress(addr string) string {
	if len(addr) <= 14 {
		return addr
	}
	return addr[:10] + "..." + addr[len(addr)-4:]
}
