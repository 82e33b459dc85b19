package ledger

import (
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"certledger.dev/certledger/model"
)

// mapRPC folds gRPC transport errors into the module's error taxonomy.
// The server's own message is preserved so operators see the real cause.
func mapRPC(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return model.WrapError(model.KindLedger, "CERT-LED-005", "ledger call failed", err)
	}

	switch st.Code() {
	case codes.NotFound:
		return model.NewError(model.KindNotFound, "CERT-LED-006", st.Message())
	case codes.InvalidArgument:
		return model.NewError(model.KindValidation, "CERT-LED-009", st.Message())
	case codes.PermissionDenied, codes.Unauthenticated:
		return model.NewError(model.KindLedger, "CERT-LED-007", st.Message())
	case codes.Unavailable, codes.DeadlineExceeded:
		return model.WrapError(model.KindLedger, "CERT-LED-005", "ledger unreachable", err)
	default:
		return model.WrapError(model.KindLedger, "CERT-LED-010", st.Message(), err)
	}
}
