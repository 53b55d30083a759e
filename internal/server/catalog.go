package server

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"maintline/internal/domain"
	"maintline/internal/engine"
	"maintline/internal/identity"
)

func registerUsers(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "createUser",
		Method:        http.MethodPost,
		Path:          "/users",
		Summary:       "Register a user",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusForbidden,
			http.StatusConflict,
		},
	}, func(ctx context.Context, input *struct {
		Body CreateUserRequest `json:"body"`
	}) (*struct {
		Body UserResponse `json:"body"`
	}, error) {
		actor, authErr := actorFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		u, err := e.RegisterUser(ctx, actor, identity.Registration{
			Name:     input.Body.Name,
			Email:    input.Body.Email,
			Password: input.Body.Password,
			Role:     input.Body.Role,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body UserResponse `json:"body"`
		}{Body: userResponse(u)}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "listUsers",
		Method:      http.MethodGet,
		Path:        "/users",
		Summary:     "List users",
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusForbidden,
		},
	}, func(ctx context.Context, input *struct {
		Role string `query:"role"`
	}) (*struct {
		Body paginatedUsers `json:"body"`
	}, error) {
		actor, authErr := actorFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		users, err := e.ListUsers(ctx, actor, input.Role)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body paginatedUsers `json:"body"`
		}{Body: paginatedUsers{Items: userResponses(users)}}, nil
	})
}

func registerAPIKeys(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "createApiKey",
		Method:        http.MethodPost,
		Path:          "/api-keys",
		Summary:       "Issue an API key",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusUnauthorized,
			http.StatusForbidden,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		Body CreateAPIKeyRequest `json:"body"`
	}) (*struct {
		Body APIKeyResponse `json:"body"`
	}, error) {
		actor, authErr := actorFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		key, plain, err := e.CreateAPIKey(ctx, actor, input.Body.UserID, input.Body.Name)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body APIKeyResponse `json:"body"`
		}{Body: APIKeyResponse{
			ID:        key.ID,
			UserID:    key.UserID,
			Name:      key.Name,
			CreatedAt: key.CreatedAt,
			Key:       plain,
		}}, nil
	})
}

func registerAssets(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID:   "createAsset",
		Method:        http.MethodPost,
		Path:          "/assets",
		Summary:       "Register an asset",
		DefaultStatus: http.StatusCreated,
		Errors: []int{
			http.StatusBadRequest,
			http.StatusUnauthorized,
			http.StatusForbidden,
		},
	}, func(ctx context.Context, input *struct {
		Body CreateAssetRequest `json:"body"`
	}) (*struct {
		Body domain.Asset `json:"body"`
	}, error) {
		actor, authErr := actorFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		a, err := e.CreateAsset(ctx, actor, engine.AssetInput{
			Name:         input.Body.Name,
			Location:     input.Body.Location,
			Status:       domain.AssetStatus(input.Body.Status),
			Model:        input.Body.Model,
			Manufacturer: input.Body.Manufacturer,
		})
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Asset `json:"body"`
		}{Body: a}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "listAssets",
		Method:      http.MethodGet,
		Path:        "/assets",
		Summary:     "List assets",
		Errors: []int{
			http.StatusUnauthorized,
			http.StatusForbidden,
		},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body paginatedAssets `json:"body"`
	}, error) {
		actor, authErr := actorFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		assets, err := e.ListAssets(ctx, actor)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body paginatedAssets `json:"body"`
		}{Body: paginatedAssets{Items: nonNilSlice(assets)}}, nil
	})

	huma.Register(api, huma.Operation{
		OperationID:   "deleteAsset",
		Method:        http.MethodDelete,
		Path:          "/assets/{id}",
		Summary:       "Delete an asset",
		DefaultStatus: http.StatusNoContent,
		Errors: []int{
			http.StatusUnauthorized,
			http.StatusForbidden,
			http.StatusNotFound,
		},
	}, func(ctx context.Context, input *struct {
		ID string `path:"id"`
	}) (*struct{}, error) {
		actor, authErr := actorFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		if err := e.DeleteAsset(ctx, actor, input.ID); err != nil {
			return nil, handleError(err)
		}
		return &struct{}{}, nil
	})
}

func registerReports(api huma.API, e engine.Engine) {
	huma.Register(api, huma.Operation{
		OperationID: "report",
		Method:      http.MethodGet,
		Path:        "/reports",
		Summary:     "Asset and work order summary",
		Errors: []int{
			http.StatusUnauthorized,
			http.StatusForbidden,
		},
	}, func(ctx context.Context, _ *struct{}) (*struct {
		Body domain.Report `json:"body"`
	}, error) {
		actor, authErr := actorFromRequest(ctx)
		if authErr != nil {
			return nil, authErr
		}
		rep, err := e.Report(ctx, actor)
		if err != nil {
			return nil, handleError(err)
		}
		return &struct {
			Body domain.Report `json:"body"`
		}{Body: rep}, nil
	})
}
