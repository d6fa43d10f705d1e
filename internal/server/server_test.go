package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	auditdomain "github.com/smallbiznis/clubhouse/internal/audit/domain"
	"github.com/smallbiznis/clubhouse/internal/authorization"
	billingdomain "github.com/smallbiznis/clubhouse/internal/billing/domain"
	"github.com/smallbiznis/clubhouse/internal/config"
	draftdomain "github.com/smallbiznis/clubhouse/internal/draft/domain"
	"github.com/smallbiznis/clubhouse/internal/observability"
	"github.com/smallbiznis/clubhouse/internal/orgcontext"
	organizationdomain "github.com/smallbiznis/clubhouse/internal/organization/domain"
	teamdomain "github.com/smallbiznis/clubhouse/internal/team/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testOrgID   = "1001"
	ownerUserID = "2001"
	plainUserID = "2002"
)

type fakeOrganizationService struct {
	organizationdomain.Service

	members map[snowflake.ID]organizationdomain.Member
}

func (f *fakeOrganizationService) GetMembership(ctx context.Context, userID snowflake.ID) (*organizationdomain.Member, error) {
	if _, ok := orgcontext.OrgIDFromContext(ctx); !ok {
		return nil, organizationdomain.ErrInvalidOrganization
	}
	member, ok := f.members[userID]
	if !ok {
		return nil, organizationdomain.ErrNotMember
	}
	return &member, nil
}

// fakeAuthz lets managers do anything and plain members only read.
type fakeAuthz struct {
	calls []string
}

func (f *fakeAuthz) Authorize(ctx context.Context, actor, orgID, object, action string) error {
	f.calls = append(f.calls, actor+" "+orgID+" "+action)
	member, ok := orgcontext.MemberFromContext(ctx)
	if !ok {
		return authorization.ErrForbidden
	}
	if organizationdomain.IsManagerRole(member.Role) {
		return nil
	}
	switch action {
	case authorization.ActionDraftView, authorization.ActionChargeView, authorization.ActionGameView:
		return nil
	}
	return authorization.ErrForbidden
}

type fakeDraftService struct {
	draftdomain.Service

	picks   []draftdomain.PickRequest
	pickErr error
}

func (f *fakeDraftService) Pick(_ context.Context, _ snowflake.ID, req draftdomain.PickRequest) (*draftdomain.PickView, error) {
	if f.pickErr != nil {
		return nil, f.pickErr
	}
	f.picks = append(f.picks, req)
	return &draftdomain.PickView{ID: 77, RoundNumber: 1, PickNumber: 1, TeamSide: req.Side}, nil
}

type fakeBillingService struct {
	billingdomain.Service

	generateReq billingdomain.GenerateChargesRequest
	generateOrg snowflake.ID
	statusErr   error
	receipt     []byte
	runAll      billingdomain.RunAllResult
	runAllErr   error
	runAllCalls int
}

func (f *fakeBillingService) GenerateCharges(ctx context.Context, req billingdomain.GenerateChargesRequest) (billingdomain.GenerateChargesResult, error) {
	f.generateReq = req
	f.generateOrg, _ = orgcontext.OrgIDFromContext(ctx)
	return billingdomain.GenerateChargesResult{CycleKey: "2026-03", Created: 3}, nil
}

func (f *fakeBillingService) SetChargeStatus(_ context.Context, req billingdomain.SetChargeStatusRequest) (billingdomain.Charge, error) {
	if f.statusErr != nil {
		return billingdomain.Charge{}, f.statusErr
	}
	return billingdomain.Charge{ID: req.ChargeID, Status: req.Status}, nil
}

func (f *fakeBillingService) ChargeReceipt(context.Context, snowflake.ID) ([]byte, error) {
	if f.receipt == nil {
		return nil, billingdomain.ErrChargeNotPaid
	}
	return f.receipt, nil
}

func (f *fakeBillingService) RunAll(context.Context) (billingdomain.RunAllResult, error) {
	f.runAllCalls++
	return f.runAll, f.runAllErr
}

type fakeAuditService struct {
	auditdomain.Service

	listReq auditdomain.ListAuditLogRequest
}

func (f *fakeAuditService) List(_ context.Context, req auditdomain.ListAuditLogRequest) (auditdomain.ListAuditLogResponse, error) {
	f.listReq = req
	return auditdomain.ListAuditLogResponse{AuditLogs: []auditdomain.AuditLog{}}, nil
}

type testServer struct {
	server  *Server
	authz   *fakeAuthz
	draft   *fakeDraftService
	billing *fakeBillingService
	audit   *fakeAuditService
}

func newTestServer(t *testing.T, cfg config.Config) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ts := &testServer{
		authz:   &fakeAuthz{},
		draft:   &fakeDraftService{},
		billing: &fakeBillingService{},
		audit:   &fakeAuditService{},
	}
	orgs := &fakeOrganizationService{members: map[snowflake.ID]organizationdomain.Member{
		2001: {ID: 3001, UserID: 2001, Role: organizationdomain.RoleOwner},
		2002: {ID: 3002, UserID: 2002, Role: organizationdomain.RoleMember},
	}}

	ts.server = NewServer(ServerParams{
		Gin:             NewEngine(observability.Config{}, nil),
		Cfg:             cfg,
		AuthzSvc:        ts.authz,
		OrganizationSvc: orgs,
		DraftSvc:        ts.draft,
		BillingSvc:      ts.billing,
		AuditSvc:        ts.audit,
	})
	RegisterRoutes(ts.server)
	return ts
}

func (ts *testServer) do(t *testing.T, method, path, userID string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set(HeaderUserID, userID)
	}
	rec := httptest.NewRecorder()
	ts.server.Engine().ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorPayload {
	t.Helper()
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Error
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, config.Config{})
	rec := ts.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSetGinModeFollowsEnvironment(t *testing.T) {
	gin.SetMode(gin.TestMode)
	t.Cleanup(func() { gin.SetMode(gin.TestMode) })

	setGinMode(config.Config{Environment: "staging"})
	assert.Equal(t, gin.TestMode, gin.Mode())

	setGinMode(config.Config{Environment: " Production "})
	assert.Equal(t, gin.ReleaseMode, gin.Mode())
}

func TestOrgRoutesRequireUserHeader(t *testing.T) {
	ts := newTestServer(t, config.Config{})

	rec := ts.do(t, http.MethodGet, "/api/orgs/"+testOrgID+"/games/9/draft", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized", decodeError(t, rec).Type)

	rec = ts.do(t, http.MethodGet, "/api/orgs/"+testOrgID+"/games/9/draft", "not-a-number", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestOrgRoutesRejectNonMembers(t *testing.T) {
	ts := newTestServer(t, config.Config{})

	rec := ts.do(t, http.MethodPost, "/api/orgs/"+testOrgID+"/charges/generate", "9999", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, ts.authz.calls)
}

func TestOrgRoutesEnforceRoles(t *testing.T) {
	ts := newTestServer(t, config.Config{})

	rec := ts.do(t, http.MethodPost, "/api/orgs/"+testOrgID+"/charges/generate", plainUserID, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, []string{"user:2002 1001 charge.generate"}, ts.authz.calls)
	assert.Zero(t, ts.billing.generateOrg)
}

func TestGenerateChargesScopesToOrgAndActor(t *testing.T) {
	ts := newTestServer(t, config.Config{})

	rec := ts.do(t, http.MethodPost, "/api/orgs/"+testOrgID+"/charges/generate", ownerUserID,
		map[string]any{"cycle_key": " 2026-03 ", "force": true})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Equal(t, snowflake.ID(1001), ts.billing.generateOrg)
	assert.Equal(t, billingdomain.GenerateChargesRequest{Force: true, CycleKey: "2026-03", ActorID: 2001}, ts.billing.generateReq)

	var result billingdomain.GenerateChargesResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 3, result.Created)
}

func TestDraftPickRequiresExactlyOneTarget(t *testing.T) {
	ts := newTestServer(t, config.Config{})
	path := "/api/orgs/" + testOrgID + "/games/9/draft/pick"

	cases := []map[string]any{
		{"team_side": "A", "org_member_id": "11", "game_guest_id": "12"},
		{"team_side": "A"},
	}
	for _, body := range cases {
		rec := ts.do(t, http.MethodPost, path, ownerUserID, body)
		require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		payload := decodeError(t, rec)
		assert.Equal(t, "validation_error", payload.Type)
		require.Len(t, payload.Errors, 1)
		assert.Equal(t, "invalid_target", payload.Errors[0].Code)
	}
	assert.Empty(t, ts.draft.picks)
}

func TestDraftPickAcceptsMemberTarget(t *testing.T) {
	ts := newTestServer(t, config.Config{})

	rec := ts.do(t, http.MethodPost, "/api/orgs/"+testOrgID+"/games/9/draft/pick", ownerUserID,
		map[string]any{"team_side": "b", "org_member_id": "11"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	require.Len(t, ts.draft.picks, 1)
	assert.Equal(t, teamdomain.SideB, ts.draft.picks[0].Side)
	assert.Equal(t, teamdomain.MemberParticipant(11), ts.draft.picks[0].Target)
}

func TestDraftPickConflictsSurfaceAs409(t *testing.T) {
	ts := newTestServer(t, config.Config{})
	ts.draft.pickErr = draftdomain.ErrNotYourTurn

	rec := ts.do(t, http.MethodPost, "/api/orgs/"+testOrgID+"/games/9/draft/pick", ownerUserID,
		map[string]any{"team_side": "A", "game_guest_id": "12"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	payload := decodeError(t, rec)
	assert.Equal(t, "conflict", payload.Type)
	assert.Equal(t, "not_your_turn", payload.Message)
}

func TestDraftPickRejectsUnknownSide(t *testing.T) {
	ts := newTestServer(t, config.Config{})

	rec := ts.do(t, http.MethodPost, "/api/orgs/"+testOrgID+"/games/9/draft/pick", ownerUserID,
		map[string]any{"team_side": "C", "org_member_id": "11"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_team_side", decodeError(t, rec).Errors[0].Code)
}

func TestChargeStatusConflict(t *testing.T) {
	ts := newTestServer(t, config.Config{})
	ts.billing.statusErr = billingdomain.ErrChargeAlreadyPaid

	rec := ts.do(t, http.MethodPatch, "/api/orgs/"+testOrgID+"/charges/55", ownerUserID, map[string]any{"status": "VOID"})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "charge_already_paid", decodeError(t, rec).Message)
}

func TestChargeStatusBindingErrorsNameFields(t *testing.T) {
	ts := newTestServer(t, config.Config{})

	rec := ts.do(t, http.MethodPatch, "/api/orgs/"+testOrgID+"/charges/55", ownerUserID, map[string]any{})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	payload := decodeError(t, rec)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "status", payload.Errors[0].Field)
	assert.Equal(t, "required", payload.Errors[0].Code)
}

func TestMalformedPathIDIsNotFound(t *testing.T) {
	ts := newTestServer(t, config.Config{})

	rec := ts.do(t, http.MethodPatch, "/api/orgs/"+testOrgID+"/charges/abc", ownerUserID, map[string]any{"status": "PAID"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/orgs/acme/games/9/draft", ownerUserID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChargeReceipt(t *testing.T) {
	ts := newTestServer(t, config.Config{})
	path := "/api/orgs/" + testOrgID + "/charges/55/receipt"

	rec := ts.do(t, http.MethodGet, path, plainUserID, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	ts.billing.receipt = []byte("%PDF-1.4")
	rec = ts.do(t, http.MethodGet, path, plainUserID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "receipt-55.pdf")
	assert.Equal(t, "%PDF-1.4", rec.Body.String())
}

func TestInternalBillingRunKey(t *testing.T) {
	disabled := newTestServer(t, config.Config{})
	rec := disabled.do(t, http.MethodPost, "/internal/billing/run", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Zero(t, disabled.billing.runAllCalls)

	ts := newTestServer(t, config.Config{InternalKey: "s3cret"})
	req := httptest.NewRequest(http.MethodPost, "/internal/billing/run", nil)
	req.Header.Set(HeaderInternalKey, "wrong")
	rec = httptest.NewRecorder()
	ts.server.Engine().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, ts.billing.runAllCalls)
}

func TestInternalBillingRunReportsPartialFailures(t *testing.T) {
	ts := newTestServer(t, config.Config{InternalKey: "s3cret"})
	ts.billing.runAll = billingdomain.RunAllResult{
		Orgs:    2,
		Results: []billingdomain.OrgRunResult{{OrgID: "1", CycleKey: "2026-03", Created: 2}},
	}
	ts.billing.runAllErr = errors.Join(errors.New("org 2: boom"))

	req := httptest.NewRequest(http.MethodPost, "/internal/billing/run", nil)
	req.Header.Set(HeaderInternalKey, "s3cret")
	rec := httptest.NewRecorder()
	ts.server.Engine().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body struct {
		Orgs    int                          `json:"orgs"`
		Results []billingdomain.OrgRunResult `json:"results"`
		Errors  []string                     `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Orgs)
	assert.Len(t, body.Results, 1)
	assert.Equal(t, []string{"org 2: boom"}, body.Errors)
}

func TestListAuditLogsGameTrail(t *testing.T) {
	ts := newTestServer(t, config.Config{})

	rec := ts.do(t, http.MethodGet, "/api/orgs/"+testOrgID+"/audit-logs?game_id=9&action=draft.*", ownerUserID, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, snowflake.ID(9), ts.audit.listReq.GameID)
	assert.Equal(t, "draft.*", ts.audit.listReq.Action)

	rec = ts.do(t, http.MethodGet, "/api/orgs/"+testOrgID+"/audit-logs?game_id=nine", ownerUserID, nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	payload := decodeError(t, rec)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "invalid_game_id", payload.Errors[0].Code)
}
