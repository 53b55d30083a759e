package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"maintline/internal/domain"
	"maintline/internal/engine"
	"maintline/internal/repo"
)

type workOrderOutput struct {
	Body domain.WorkOrder `json:"body"`
}

func registerWorkOrders(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "createWorkOrder",
		Method:        http.MethodPost,
		Path:          "/work-orders",
		Summary:       "Create work order",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusForbidden,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		Body CreateWorkOrderRequest `json:"body"`
	}) (*workOrderOutput, error) {
		actor, authErr := actorFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		wo, err := e.CreateWorkOrder(ctx, actor, engine.CreateWorkOrderInput{
			Asset:       input.Body.Asset,
			AssetID:     input.Body.AssetID,
			Description: input.Body.Description,
			Priority:    domain.Priority(input.Body.Priority),
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &workOrderOutput{Body: wo}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "listWorkOrders",
		Method:      http.MethodGet,
		Path:        "/work-orders",
		Summary:     "List work orders",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusForbidden,
		},
	}, func(ctx context.Context, input *struct {
		Status     string `query:"status"`
		AssignedTo string `query:"assignedTo"`
		Priority   string `query:"priority"`
		AssetID    string `query:"assetId"`
	}) (*struct {
		Body paginatedWorkOrders `json:"body"`
	}, error) {
		actor, authErr := actorFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		list, err := e.ListWorkOrders(ctx, actor, repo.WorkOrderFilter{
			Status:     domain.Status(input.Status),
			AssignedTo: input.AssignedTo,
			Priority:   domain.Priority(input.Priority),
			AssetID:    input.AssetID,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body paginatedWorkOrders `json:"body"`
		}{Body: paginatedWorkOrders{Items: list}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "getWorkOrder",
		Method:      http.MethodGet,
		Path:        "/work-orders/{id}",
		Summary:     "Get work order with history",
		Errors: []int{
			http.StatusUnauthorized,
			http.StatusForbidden,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*workOrderOutput, error) {
		actor, authErr := actorFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		wo, err := e.GetWorkOrder(ctx, actor, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &workOrderOutput{Body: wo}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "updateWorkOrderStatus",
		Method:      http.MethodPut,
		Path:        "/work-orders/{id}/status",
		Summary:     "Change work order status",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusConflict,
			http.StatusServiceUnavailable,
		},
	}, func(ctx context.Context, input *struct {
		ID   string              `path:"id"`
		Body UpdateStatusRequest `json:"body"`
	}) (*workOrderOutput, error) {
		actor, authErr := actorFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		wo, err := e.RequestStatusChange(ctx, actor, input.ID, input.Body.Status)
		if err != nil {
			return nil, handleError(err)
		}
		return &workOrderOutput{Body: wo}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "assignWorkOrder",
		Method:      http.MethodPut,
		Path:        "/work-orders/{id}/assign",
		Summary:     "Assign a technician",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusConflict,
			http.StatusServiceUnavailable,
		},
	}, func(ctx context.Context, input *struct {
		ID   string        `path:"id"`
		Body AssignRequest `json:"body"`
	}) (*workOrderOutput, error) {
		actor, authErr := actorFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		wo, err := e.AssignTechnician(ctx, actor, input.ID, input.Body.TechnicianID)
		if err != nil {
			return nil, handleError(err)
		}
		return &workOrderOutput{Body: wo}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "deleteWorkOrder",
		Method:        http.MethodDelete,
		Path:          "/work-orders/{id}",
		Summary:       "Delete work order",
		DefaultStatus: http.StatusNoContent,
		Errors: []int{
			http.StatusUnauthorized,
			http.StatusForbidden,
			http.StatusNotFound,
			http.StatusServiceUnavailable,
		},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct{}, error) {
		actor, authErr := actorFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteWorkOrder(ctx, actor, input.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "getWorkOrderHistory",
		Method:      http.MethodGet,
		Path:        "/work-orders/{id}/history",
		Summary:     "Work order history, oldest first",
		Errors: []int{
			http.StatusUnauthorized,
			http.StatusForbidden,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct {
		Body historyResponse `json:"body"`
	}, error) {
		actor, authErr := actorFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		items, err := e.Timeline(ctx, actor, input.ID)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body historyResponse `json:"body"`
		}{Body: historyResponse{WorkOrderID: input.ID, Items: nonNilSlice(items)}}, nil
	})
}
