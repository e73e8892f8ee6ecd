package service

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

// LedgerServiceName is the fully-qualified name of the LedgerService.
const LedgerServiceName = "groupsplit.v1.LedgerService"

// Procedure paths of the LedgerService.
const (
	GetCurrentUserProcedure          = "/groupsplit.v1.LedgerService/GetCurrentUser"
	CreateReservationProcedure       = "/groupsplit.v1.LedgerService/CreateReservation"
	GetReservationProcedure          = "/groupsplit.v1.LedgerService/GetReservation"
	UpdateReservationStatusProcedure = "/groupsplit.v1.LedgerService/UpdateReservationStatus"
	JoinGroupProcedure               = "/groupsplit.v1.LedgerService/JoinGroup"
	OpenPaymentProcedure             = "/groupsplit.v1.LedgerService/OpenPayment"
	ConfirmPaymentProcedure          = "/groupsplit.v1.LedgerService/ConfirmPayment"
	GetDashboardProcedure            = "/groupsplit.v1.LedgerService/GetDashboard"
	ListActivitiesProcedure          = "/groupsplit.v1.LedgerService/ListActivities"
	SendReminderProcedure            = "/groupsplit.v1.LedgerService/SendReminder"
)

// NewLedgerServiceHandler builds an HTTP handler serving every LedgerService
// procedure. It returns the path prefix to mount the handler on.
func NewLedgerServiceHandler(svc *LedgerService, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(jsonCodec{})}, opts...)

	mux := http.NewServeMux()
	mux.Handle(GetCurrentUserProcedure, connect.NewUnaryHandler(GetCurrentUserProcedure, svc.GetCurrentUser, opts...))
	mux.Handle(CreateReservationProcedure, connect.NewUnaryHandler(CreateReservationProcedure, svc.CreateReservation, opts...))
	mux.Handle(GetReservationProcedure, connect.NewUnaryHandler(GetReservationProcedure, svc.GetReservation, opts...))
	mux.Handle(UpdateReservationStatusProcedure, connect.NewUnaryHandler(UpdateReservationStatusProcedure, svc.UpdateReservationStatus, opts...))
	mux.Handle(JoinGroupProcedure, connect.NewUnaryHandler(JoinGroupProcedure, svc.JoinGroup, opts...))
	mux.Handle(OpenPaymentProcedure, connect.NewUnaryHandler(OpenPaymentProcedure, svc.OpenPayment, opts...))
	mux.Handle(ConfirmPaymentProcedure, connect.NewUnaryHandler(ConfirmPaymentProcedure, svc.ConfirmPayment, opts...))
	mux.Handle(GetDashboardProcedure, connect.NewUnaryHandler(GetDashboardProcedure, svc.GetDashboard, opts...))
	mux.Handle(ListActivitiesProcedure, connect.NewUnaryHandler(ListActivitiesProcedure, svc.ListActivities, opts...))
	mux.Handle(SendReminderProcedure, connect.NewUnaryHandler(SendReminderProcedure, svc.SendReminder, opts...))

	return "/" + LedgerServiceName + "/", mux
}

// LedgerServiceClient calls a LedgerService over Connect.
type LedgerServiceClient struct {
	getCurrentUser          *connect.Client[GetCurrentUserRequest, GetCurrentUserResponse]
	createReservation       *connect.Client[CreateReservationRequest, CreateReservationResponse]
	getReservation          *connect.Client[GetReservationRequest, GetReservationResponse]
	updateReservationStatus *connect.Client[UpdateReservationStatusRequest, UpdateReservationStatusResponse]
	joinGroup               *connect.Client[JoinGroupRequest, JoinGroupResponse]
	openPayment             *connect.Client[OpenPaymentRequest, OpenPaymentResponse]
	confirmPayment          *connect.Client[ConfirmPaymentRequest, ConfirmPaymentResponse]
	getDashboard            *connect.Client[GetDashboardRequest, GetDashboardResponse]
	listActivities          *connect.Client[ListActivitiesRequest, ListActivitiesResponse]
	sendReminder            *connect.Client[SendReminderRequest, SendReminderResponse]
}

// NewLedgerServiceClient creates a client for the LedgerService at baseURL.
func NewLedgerServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) *LedgerServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(jsonCodec{})}, opts...)

	return &LedgerServiceClient{
		getCurrentUser:          connect.NewClient[GetCurrentUserRequest, GetCurrentUserResponse](httpClient, baseURL+GetCurrentUserProcedure, opts...),
		createReservation:       connect.NewClient[CreateReservationRequest, CreateReservationResponse](httpClient, baseURL+CreateReservationProcedure, opts...),
		getReservation:          connect.NewClient[GetReservationRequest, GetReservationResponse](httpClient, baseURL+GetReservationProcedure, opts...),
		updateReservationStatus: connect.NewClient[UpdateReservationStatusRequest, UpdateReservationStatusResponse](httpClient, baseURL+UpdateReservationStatusProcedure, opts...),
		joinGroup:               connect.NewClient[JoinGroupRequest, JoinGroupResponse](httpClient, baseURL+JoinGroupProcedure, opts...),
		openPayment:             connect.NewClient[OpenPaymentRequest, OpenPaymentResponse](httpClient, baseURL+OpenPaymentProcedure, opts...),
		confirmPayment:          connect.NewClient[ConfirmPaymentRequest, ConfirmPaymentResponse](httpClient, baseURL+ConfirmPaymentProcedure, opts...),
		getDashboard:            connect.NewClient[GetDashboardRequest, GetDashboardResponse](httpClient, baseURL+GetDashboardProcedure, opts...),
		listActivities:          connect.NewClient[ListActivitiesRequest, ListActivitiesResponse](httpClient, baseURL+ListActivitiesProcedure, opts...),
		sendReminder:            connect.NewClient[SendReminderRequest, SendReminderResponse](httpClient, baseURL+SendReminderProcedure, opts...),
	}
}

func (c *LedgerServiceClient) GetCurrentUser(ctx context.Context, req *connect.Request[GetCurrentUserRequest]) (*connect.Response[GetCurrentUserResponse], error) {
	return c.getCurrentUser.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) CreateReservation(ctx context.Context, req *connect.Request[CreateReservationRequest]) (*connect.Response[CreateReservationResponse], error) {
	return c.createReservation.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) GetReservation(ctx context.Context, req *connect.Request[GetReservationRequest]) (*connect.Response[GetReservationResponse], error) {
	return c.getReservation.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) UpdateReservationStatus(ctx context.Context, req *connect.Request[UpdateReservationStatusRequest]) (*connect.Response[UpdateReservationStatusResponse], error) {
	return c.updateReservationStatus.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) JoinGroup(ctx context.Context, req *connect.Request[JoinGroupRequest]) (*connect.Response[JoinGroupResponse], error) {
	return c.joinGroup.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) OpenPayment(ctx context.Context, req *connect.Request[OpenPaymentRequest]) (*connect.Response[OpenPaymentResponse], error) {
	return c.openPayment.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) ConfirmPayment(ctx context.Context, req *connect.Request[ConfirmPaymentRequest]) (*connect.Response[ConfirmPaymentResponse], error) {
	return c.confirmPayment.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) GetDashboard(ctx context.Context, req *connect.Request[GetDashboardRequest]) (*connect.Response[GetDashboardResponse], error) {
	return c.getDashboard.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) ListActivities(ctx context.Context, req *connect.Request[ListActivitiesRequest]) (*connect.Response[ListActivitiesResponse], error) {
	return c.listActivities.CallUnary(ctx, req)
}

func (c *LedgerServiceClient) SendReminder(ctx context.Context, req *connect.Request[SendReminderRequest]) (*connect.Response[SendReminderResponse], error) {
	return c.sendReminder.CallUnary(ctx, req)
}
