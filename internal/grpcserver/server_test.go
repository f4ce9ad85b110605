package grpcserver

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/adminauth"
	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/apperr"
	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/model"
	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/moderation"
	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/store/memory"
)

const jwtSecret = "grpc-test-secret"

func setup(t *testing.T) (*Client, *grpc.ClientConn, *memory.Store, *adminauth.TokenVerifier) {
	t.Helper()
	store := memory.New()
	verifier := adminauth.NewTokenVerifier(jwtSecret)
	gate := adminauth.New(adminauth.Config{AutomationSecret: "auto", Admins: []string{"admin-1"}, Verifier: verifier})
	gs := New(NewServer(moderation.NewService(store, nil, nil), gate), nil)

	lis := bufconn.Listen(1 << 20)
	go func() { _ = gs.Serve(lis) }()
	t.Cleanup(gs.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { conn.Close() })
	return NewClient(conn), conn, store, verifier
}

func withBearer(t *testing.T, token string) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+token)
}

func mustStruct(t *testing.T, m map[string]any) *structpb.Struct {
	t.Helper()
	s, err := structpb.NewStruct(m)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func TestListAndApprove(t *testing.T) {
	client, _, store, verifier := setup(t)
	_, _ = store.Ingest(context.Background(), model.Location{City: "Austin", State: "TX"},
		[]model.Candidate{{Name: "Hill Country Award", Organization: "HCF"}})

	out, err := client.ListPending(withBearer(t, "auto"), mustStruct(t, map[string]any{"limit": 10}))
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	items := out.GetFields()["items"].GetListValue().GetValues()
	if len(items) != 1 {
		t.Fatalf("items = %d, want 1", len(items))
	}
	id := items[0].GetStructValue().GetFields()["id"].GetStringValue()

	admin, _ := verifier.Issue("admin-1", time.Hour)
	res, err := client.Approve(withBearer(t, admin), mustStruct(t, map[string]any{"id": id, "reviewerNotes": "ok"}))
	if err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if res.GetFields()["status"].GetStringValue() != "approved" {
		t.Errorf("response = %v", res)
	}
}

func TestErrorCodes(t *testing.T) {
	client, _, _, verifier := setup(t)
	admin, _ := verifier.Issue("admin-1", time.Hour)
	outsider, _ := verifier.Issue("someone", time.Hour)

	tests := []struct {
		name string
		call func() error
		want codes.Code
	}{
		{"no metadata", func() error {
			_, err := client.ListPending(context.Background(), &structpb.Struct{})
			return err
		}, codes.Unauthenticated},
		{"not on allow-list", func() error {
			_, err := client.ListPending(withBearer(t, outsider), &structpb.Struct{})
			return err
		}, codes.PermissionDenied},
		{"automation cannot decide", func() error {
			_, err := client.Reject(withBearer(t, "auto"), mustStruct(t, map[string]any{"id": "0b9a4d0e-8f51-4b6e-9d0c-3c1f2a7e5b11"}))
			return err
		}, codes.PermissionDenied},
		{"malformed id", func() error {
			_, err := client.Approve(withBearer(t, admin), mustStruct(t, map[string]any{"id": "nope"}))
			return err
		}, codes.InvalidArgument},
		{"unknown id", func() error {
			_, err := client.Approve(withBearer(t, admin), mustStruct(t, map[string]any{"id": "0b9a4d0e-8f51-4b6e-9d0c-3c1f2a7e5b11"}))
			return err
		}, codes.NotFound},
		{"bad status filter", func() error {
			_, err := client.ListPending(withBearer(t, "auto"), mustStruct(t, map[string]any{"status": "archived"}))
			return err
		}, codes.InvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := status.Code(tt.call()); got != tt.want {
				t.Errorf("code = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestHealth(t *testing.T) {
	_, conn, _, _ := setup(t)
	resp, err := healthpb.NewHealthClient(conn).Check(context.Background(), &healthpb.HealthCheckRequest{Service: ServiceName})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Status != healthpb.HealthCheckResponse_SERVING {
		t.Errorf("status = %s", resp.Status)
	}
}

func TestToGRPCError(t *testing.T) {
	cases := map[error]codes.Code{
		apperr.Invalid("id", "bad"):        codes.InvalidArgument,
		apperr.ErrConflict:                 codes.FailedPrecondition,
		apperr.ErrUpstreamUnavailable:      codes.Unavailable,
		errors.New("pq: connection reset"): codes.Internal,
	}
	for err, want := range cases {
		if got := status.Code(toGRPCError(err)); got != want {
			t.Errorf("toGRPCError(%v) = %s, want %s", err, got, want)
		}
	}
}
