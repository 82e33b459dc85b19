package ledger

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"certledger.dev/certledger/keys"
	"certledger.dev/certledger/model"
)

// Client issues and reads certificates over the Ledger gRPC service.
//
// Every commit is signed by the configured Signer; the server rejects
// commits whose signature does not verify against the issuer key carried
// in the request.
type Client struct {
	cc     *grpc.ClientConn
	client LedgerClient

	// Signer authenticates commits. Read-only operations work without one.
	Signer *keys.Signer

	// Timeout applies per RPC when non-zero.
	Timeout time.Duration
}

type DialOptions struct {
	// Timeout applies to the initial dial when non-zero.
	Timeout time.Duration

	// MaxMsgBytes sets both send/recv max sizes when non-zero.
	MaxMsgBytes int
}

func Dial(target string, opts DialOptions) (*Client, error) {
	dialOpts := []grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	}
	if opts.MaxMsgBytes > 0 {
		dialOpts = append(dialOpts,
			grpc.WithDefaultCallOptions(
				grpc.MaxCallRecvMsgSize(opts.MaxMsgBytes),
				grpc.MaxCallSendMsgSize(opts.MaxMsgBytes),
			),
		)
	}

	ctx := context.Background()
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cc, err := grpc.DialContext(ctx, target, dialOpts...)
	if err != nil {
		return nil, model.WrapError(model.KindLedger, "CERT-LED-005", "cannot reach ledger", err)
	}
	return &Client{cc: cc, client: NewLedgerClient(cc)}, nil
}

func (c *Client) Close() error {
	if c == nil || c.cc == nil {
		return nil
	}
	return c.cc.Close()
}

func (c *Client) ctx(parent context.Context) (context.Context, context.CancelFunc) {
	if c.Timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, c.Timeout)
}

func (c *Client) sign(message []byte) (issuerKey, hashAlg, sig string, err error) {
	if c.Signer == nil {
		return "", "", "", model.NewError(model.KindLedger, "CERT-LED-004", "no signer configured for commit")
	}
	sig, err = c.Signer.Sign(message)
	if err != nil {
		return "", "", "", err
	}
	return c.Signer.IssuerKey(), c.Signer.HashAlgorithm(), sig, nil
}

// CommitOne records a single certificate on the ledger and returns its
// receipt. A confirmation that carries no certificate id is an error even
// though the commit may have landed; the caller must not assume either way.
func (c *Client) CommitOne(ctx context.Context, name, contentHash string) (model.LedgerReceipt, error) {
	issuerKey, hashAlg, sig, err := c.sign(commitMessage(name, contentHash))
	if err != nil {
		return model.LedgerReceipt{}, err
	}
	req, err := newStruct(map[string]any{
		"name":         name,
		"content_hash": contentHash,
		"issuer_key":   issuerKey,
		"hash_alg":     hashAlg,
		"signature":    sig,
	})
	if err != nil {
		return model.LedgerReceipt{}, model.WrapError(model.KindInternal, "CERT-LED-008", "cannot build commit request", err)
	}

	rctx, cancel := c.ctx(ctx)
	defer cancel()
	reply, err := c.client.Issue(rctx, req)
	if err != nil {
		return model.LedgerReceipt{}, mapRPC(err)
	}

	receipt := model.LedgerReceipt{
		CertificateID: fieldString(reply, "certificate_id"),
		TransactionID: fieldString(reply, "transaction_id"),
		BlockRef:      fieldString(reply, "block_ref"),
	}
	if receipt.CertificateID == "" {
		return model.LedgerReceipt{}, model.NewError(model.KindLedger, "CERT-LED-002",
			"confirmation carried no certificate id; the commit may have landed, check the ledger before retrying")
	}
	return receipt, nil
}

// CommitBatch records many certificates in one ledger transaction.
// All-or-nothing: either every pair lands or none does. An empty input is
// a successful no-op and performs no network call.
func (c *Client) CommitBatch(ctx context.Context, names, contentHashes []string) ([]model.LedgerReceipt, error) {
	if len(names) != len(contentHashes) {
		return nil, model.NewError(model.KindLedger, "CERT-LED-001", "names and content hashes differ in length")
	}
	if len(names) == 0 {
		return nil, nil
	}

	issuerKey, hashAlg, sig, err := c.sign(batchMessage(names, contentHashes))
	if err != nil {
		return nil, err
	}
	req, err := newStruct(map[string]any{
		"names":          stringsToAny(names),
		"content_hashes": stringsToAny(contentHashes),
		"issuer_key":     issuerKey,
		"hash_alg":       hashAlg,
		"signature":      sig,
	})
	if err != nil {
		return nil, model.WrapError(model.KindInternal, "CERT-LED-008", "cannot build commit request", err)
	}

	rctx, cancel := c.ctx(ctx)
	defer cancel()
	reply, err := c.client.BulkIssue(rctx, req)
	if err != nil {
		return nil, mapRPC(err)
	}

	ids := fieldStrings(reply, "certificate_ids")
	if len(ids) != len(names) {
		return nil, model.NewError(model.KindLedger, "CERT-LED-002",
			"confirmation carried a partial id list; the commit may have landed, check the ledger before retrying")
	}
	txID := fieldString(reply, "transaction_id")
	blockRef := fieldString(reply, "block_ref")
	receipts := make([]model.LedgerReceipt, len(ids))
	for i, id := range ids {
		if id == "" {
			return nil, model.NewError(model.KindLedger, "CERT-LED-002",
				"confirmation carried an empty certificate id; the commit may have landed, check the ledger before retrying")
		}
		receipts[i] = model.LedgerReceipt{CertificateID: id, TransactionID: txID, BlockRef: blockRef}
	}
	return receipts, nil
}

// Read fetches the ledger record for a certificate id.
func (c *Client) Read(ctx context.Context, certificateID string) (model.LedgerRecord, error) {
	req, err := newStruct(map[string]any{"certificate_id": certificateID})
	if err != nil {
		return model.LedgerRecord{}, model.WrapError(model.KindInternal, "CERT-LED-008", "cannot build read request", err)
	}
	rctx, cancel := c.ctx(ctx)
	defer cancel()
	reply, err := c.client.GetCertificate(rctx, req)
	if err != nil {
		return model.LedgerRecord{}, mapRPC(err)
	}
	return model.LedgerRecord{
		StudentName: fieldString(reply, "student_name"),
		ContentHash: fieldString(reply, "content_hash"),
		Issuer:      fieldString(reply, "issuer"),
		Timestamp:   int64(fieldNumber(reply, "timestamp")),
		IsValid:     fieldBool(reply, "is_valid"),
	}, nil
}

// Verify reports whether a certificate id exists and is valid. Absent or
// invalidated certificates yield false, not an error; errors are reserved
// for inability to consult the ledger.
func (c *Client) Verify(ctx context.Context, certificateID string) (bool, error) {
	req, err := newStruct(map[string]any{"certificate_id": certificateID})
	if err != nil {
		return false, model.WrapError(model.KindInternal, "CERT-LED-008", "cannot build verify request", err)
	}
	rctx, cancel := c.ctx(ctx)
	defer cancel()
	reply, err := c.client.VerifyCertificate(rctx, req)
	if err != nil {
		return false, mapRPC(err)
	}
	return fieldBool(reply, "valid"), nil
}

// ByIssuer lists the certificate ids committed under an issuer key.
func (c *Client) ByIssuer(ctx context.Context, issuerKey string) ([]string, error) {
	req, err := newStruct(map[string]any{"issuer_key": issuerKey})
	if err != nil {
		return nil, model.WrapError(model.KindInternal, "CERT-LED-008", "cannot build issuer request", err)
	}
	rctx, cancel := c.ctx(ctx)
	defer cancel()
	reply, err := c.client.GetCertificatesByIssuer(rctx, req)
	if err != nil {
		return nil, mapRPC(err)
	}
	return fieldStrings(reply, "certificate_ids"), nil
}

// Counter returns the ledger's total issued-certificate count.
func (c *Client) Counter(ctx context.Context) (int64, error) {
	req, err := newStruct(map[string]any{})
	if err != nil {
		return 0, model.WrapError(model.KindInternal, "CERT-LED-008", "cannot build counter request", err)
	}
	rctx, cancel := c.ctx(ctx)
	defer cancel()
	reply, err := c.client.GetCurrentCounter(rctx, req)
	if err != nil {
		return 0, mapRPC(err)
	}
	return int64(fieldNumber(reply, "counter")), nil
}
