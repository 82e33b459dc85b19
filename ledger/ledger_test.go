package ledger

import (
	"context"
	"crypto/ed25519"
	"net"
	"strings"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"certledger.dev/certledger/keys"
	"certledger.dev/certledger/model"
)

func testSigner(t *testing.T) *keys.Signer {
	t.Helper()
	seed := make([]byte, ed25519.SeedSize)
	for i := range seed {
		seed[i] = byte(i)
	}
	s, err := keys.NewEd25519Signer(seed)
	if err != nil {
		t.Fatalf("NewEd25519Signer: %v", err)
	}
	return s
}

func testLedger(t *testing.T) (*Client, *Server) {
	t.Helper()
	srv := NewServer()

	lis := bufconn.Listen(1024 * 1024)
	gs := grpc.NewServer()
	RegisterLedgerServer(gs, srv)
	go func() {
		_ = gs.Serve(lis)
	}()
	t.Cleanup(gs.Stop)

	dialer := func(ctx context.Context, s string) (net.Conn, error) { return lis.Dial() }
	cc, err := grpc.DialContext(
		context.Background(),
		"bufnet",
		grpc.WithContextDialer(dialer),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("DialContext: %v", err)
	}
	t.Cleanup(func() { cc.Close() })

	return &Client{cc: cc, client: NewLedgerClient(cc), Signer: testSigner(t), Timeout: 2 * time.Second}, srv
}

func TestCommitOneAndRead(t *testing.T) {
	client, _ := testLedger(t)
	ctx := context.Background()

	receipt, err := client.CommitOne(ctx, "Ann", "QmHashA")
	if err != nil {
		t.Fatalf("CommitOne: %v", err)
	}
	if receipt.CertificateID == "" || receipt.TransactionID == "" {
		t.Fatalf("incomplete receipt: %+v", receipt)
	}
	if !strings.HasPrefix(receipt.TransactionID, "0x") {
		t.Errorf("transaction id = %q", receipt.TransactionID)
	}

	rec, err := client.Read(ctx, receipt.CertificateID)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if rec.StudentName != "Ann" || rec.ContentHash != "QmHashA" {
		t.Errorf("record = %+v", rec)
	}
	if rec.Issuer != client.Signer.IssuerKey() {
		t.Errorf("issuer = %q", rec.Issuer)
	}
	if !rec.IsValid || rec.Timestamp == 0 {
		t.Errorf("record = %+v", rec)
	}
}

func TestCommitBatch(t *testing.T) {
	client, _ := testLedger(t)
	ctx := context.Background()

	names := []string{"Ann", "Ben", "Cal"}
	hashes := []string{"QmA", "QmB", "QmC"}
	receipts, err := client.CommitBatch(ctx, names, hashes)
	if err != nil {
		t.Fatalf("CommitBatch: %v", err)
	}
	if len(receipts) != 3 {
		t.Fatalf("len = %d, want 3", len(receipts))
	}
	// One transaction covers the whole batch.
	for _, r := range receipts[1:] {
		if r.TransactionID != receipts[0].TransactionID {
			t.Errorf("receipts span transactions: %q vs %q", r.TransactionID, receipts[0].TransactionID)
		}
	}
	seen := map[string]bool{}
	for _, r := range receipts {
		if seen[r.CertificateID] {
			t.Errorf("duplicate certificate id %q", r.CertificateID)
		}
		seen[r.CertificateID] = true
	}

	n, err := client.Counter(ctx)
	if err != nil {
		t.Fatalf("Counter: %v", err)
	}
	if n != 3 {
		t.Errorf("counter = %d, want 3", n)
	}
}

func TestCommitBatchArityMismatch(t *testing.T) {
	client, _ := testLedger(t)
	_, err := client.CommitBatch(context.Background(), []string{"Ann", "Ben"}, []string{"QmA"})
	if model.ErrCode(err) != "CERT-LED-001" {
		t.Fatalf("err = %v, want CERT-LED-001", err)
	}
}

func TestCommitBatchEmptyIsNoOp(t *testing.T) {
	client, _ := testLedger(t)
	receipts, err := client.CommitBatch(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("CommitBatch: %v", err)
	}
	if receipts != nil {
		t.Fatalf("receipts = %v, want nil", receipts)
	}
	n, err := client.Counter(context.Background())
	if err != nil {
		t.Fatalf("Counter: %v", err)
	}
	if n != 0 {
		t.Errorf("counter moved on empty batch: %d", n)
	}
}

func TestVerify(t *testing.T) {
	client, srv := testLedger(t)
	ctx := context.Background()

	receipt, err := client.CommitOne(ctx, "Ann", "QmA")
	if err != nil {
		t.Fatalf("CommitOne: %v", err)
	}

	ok, err := client.Verify(ctx, receipt.CertificateID)
	if err != nil || !ok {
		t.Fatalf("Verify = %v, %v; want true, nil", ok, err)
	}

	// Absent id: false, not an error.
	ok, err = client.Verify(ctx, "9999")
	if err != nil {
		t.Fatalf("Verify absent: %v", err)
	}
	if ok {
		t.Error("absent id verified")
	}

	// Invalidated record: false, not an error.
	if !srv.SetValidity(receipt.CertificateID, false) {
		t.Fatal("SetValidity: unknown id")
	}
	ok, err = client.Verify(ctx, receipt.CertificateID)
	if err != nil {
		t.Fatalf("Verify invalidated: %v", err)
	}
	if ok {
		t.Error("invalidated id verified")
	}
}

func TestReadAbsentIsNotFound(t *testing.T) {
	client, _ := testLedger(t)
	_, err := client.Read(context.Background(), "42")
	if !model.IsKind(err, model.KindNotFound) {
		t.Fatalf("err = %v, want KindNotFound", err)
	}
}

func TestByIssuer(t *testing.T) {
	client, _ := testLedger(t)
	ctx := context.Background()

	r1, err := client.CommitOne(ctx, "Ann", "QmA")
	if err != nil {
		t.Fatalf("CommitOne: %v", err)
	}
	r2, err := client.CommitOne(ctx, "Ben", "QmB")
	if err != nil {
		t.Fatalf("CommitOne: %v", err)
	}

	ids, err := client.ByIssuer(ctx, client.Signer.IssuerKey())
	if err != nil {
		t.Fatalf("ByIssuer: %v", err)
	}
	if len(ids) != 2 || ids[0] != r1.CertificateID || ids[1] != r2.CertificateID {
		t.Errorf("ids = %v", ids)
	}

	ids, err = client.ByIssuer(ctx, "ed25519:unknown")
	if err != nil {
		t.Fatalf("ByIssuer unknown: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("ids for unknown issuer = %v", ids)
	}
}

func TestCommitRejectedForInvalidatedSigner(t *testing.T) {
	client, _ := testLedger(t)
	client.Signer.Invalidate()
	_, err := client.CommitOne(context.Background(), "Ann", "QmA")
	if model.ErrCode(err) != "CERT-LED-003" {
		t.Fatalf("err = %v, want CERT-LED-003", err)
	}
	n, cerr := client.Counter(context.Background())
	if cerr != nil {
		t.Fatalf("Counter: %v", cerr)
	}
	if n != 0 {
		t.Errorf("counter moved despite rejected commit: %d", n)
	}
}

func TestServerRejectsBadSignature(t *testing.T) {
	client, _ := testLedger(t)
	ctx := context.Background()

	// Sign one message, replay the signature on another commit.
	sig, err := client.Signer.Sign(commitMessage("Ann", "QmA"))
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	req, err := newStruct(map[string]any{
		"name":         "Mallory",
		"content_hash": "QmEvil",
		"issuer_key":   client.Signer.IssuerKey(),
		"hash_alg":     "sha256",
		"signature":    sig,
	})
	if err != nil {
		t.Fatalf("newStruct: %v", err)
	}
	_, err = client.client.Issue(ctx, req)
	if err == nil {
		t.Fatal("expected rejection for replayed signature")
	}
	if model.ErrCode(mapRPC(err)) != "CERT-LED-007" {
		t.Errorf("mapped err = %v", mapRPC(err))
	}
}

func TestExplorerURL(t *testing.T) {
	if got := ExplorerURL("sepolia", "0xabc"); got != "https://sepolia.etherscan.io/tx/0xabc" {
		t.Errorf("ExplorerURL = %q", got)
	}
	if got := ExplorerURL("local", "0xabc"); got != "" {
		t.Errorf("ExplorerURL local = %q", got)
	}
	if got := ExplorerURL("unknown-net", "0xabc"); got != "" {
		t.Errorf("ExplorerURL unknown = %q", got)
	}
}

func TestShortAddress(t *testing.T) {
	long := "0x1234567890abcdef1234567890abcdef12345678"
	if got := ShortAddress(long); got != "0x12345678...5678" {
		t.Errorf("ShortAddress = %q", got)
	}
	if got := ShortAddress("0xabc"); got != "0xabc" {
		t.Errorf("ShortAddress short = %q", got)
	}
}
