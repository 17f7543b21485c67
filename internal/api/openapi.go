package api

import (
	"encoding/json"
	"net/http"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/alx-travel/alx-travel-app/internal/auth"
	"github.com/alx-travel/alx-travel-app/internal/listing"
)

const (
	bearerSchemeName = "bearerAuth"
	listingSchemaRef = "#/components/schemas/Listing"
	inputSchemaRef   = "#/components/schemas/ListingInput"
	errorSchemaRef   = "#/components/schemas/Error"
)

// NewOpenAPIDocument describes the listings API. Operations carry a bearer
// security requirement unless permission lets anonymous callers through.
func NewOpenAPIDocument(permission auth.Permission) *openapi3.T {
	listingSchema := openapi3.NewObjectSchema().
		WithProperty("id", readOnly(openapi3.NewInt64Schema())).
		WithProperty("title", openapi3.NewStringSchema().WithMaxLength(listing.MaxTextLength)).
		WithProperty("description", openapi3.NewStringSchema()).
		WithProperty("location", openapi3.NewStringSchema().WithMaxLength(listing.MaxTextLength)).
		WithProperty("price_per_night", openapi3.NewStringSchema().WithPattern(`^\d{1,8}\.\d{2}$`)).
		WithProperty("created_at", readOnly(openapi3.NewDateTimeSchema())).
		WithProperty("updated_at", readOnly(openapi3.NewDateTimeSchema()))
	listingSchema.Required = []string{"id", "title", "location", "price_per_night", "created_at", "updated_at"}

	inputSchema := openapi3.NewObjectSchema().
		WithProperty("title", openapi3.NewStringSchema().WithMaxLength(listing.MaxTextLength)).
		WithProperty("description", openapi3.NewStringSchema()).
		WithProperty("location", openapi3.NewStringSchema().WithMaxLength(listing.MaxTextLength)).
		WithProperty("price_per_night", openapi3.NewStringSchema().WithPattern(`^\d{1,8}(\.\d{1,2})?$`))
	inputSchema.Required = []string{"title", "location", "price_per_night"}

	errorSchema := openapi3.NewObjectSchema().
		WithProperty("error", openapi3.NewStringSchema()).
		WithProperty("details", openapi3.NewStringSchema()).
		WithProperty("fields", openapi3.NewObjectSchema().WithAdditionalProperties(openapi3.NewStringSchema()))
	errorSchema.Required = []string{"error"}

	healthSchema := openapi3.NewObjectSchema().
		WithProperty("status", openapi3.NewStringSchema().WithEnum("ok", "degraded")).
		WithProperty("database", openapi3.NewStringSchema().WithEnum("ok", "unavailable")).
		WithProperty("timestamp", openapi3.NewDateTimeSchema())

	listingRef := openapi3.NewSchemaRef(listingSchemaRef, listingSchema)
	inputRef := openapi3.NewSchemaRef(inputSchemaRef, inputSchema)
	errorRef := openapi3.NewSchemaRef(errorSchemaRef, errorSchema)

	idParam := &openapi3.ParameterRef{Value: openapi3.NewPathParameter("id").
		WithDescription("Listing identifier").
		WithSchema(openapi3.NewInt64Schema().WithMin(1))}
	body := &openapi3.RequestBodyRef{Value: openapi3.NewRequestBody().
		WithRequired(true).
		WithJSONSchemaRef(inputRef)}

	var security *openapi3.SecurityRequirements
	if permission != auth.AllowAny {
		security = openapi3.NewSecurityRequirements().
			With(openapi3.NewSecurityRequirement().Authenticate(bearerSchemeName))
	}

	listOp := &openapi3.Operation{
		OperationID: "listings_list",
		Summary:     "List listings",
		Tags:        []string{"listings"},
		Parameters: openapi3.Parameters{
			{Value: openapi3.NewQueryParameter("limit").
				WithDescription("Page size, capped at 100").
				WithSchema(openapi3.NewIntegerSchema().WithMin(1).WithMax(listing.MaxPageSize))},
			{Value: openapi3.NewQueryParameter("offset").
				WithDescription("Number of listings to skip").
				WithSchema(openapi3.NewIntegerSchema().WithMin(0))},
		},
		Responses: openapi3.NewResponses(
			openapi3.WithStatus(http.StatusOK, jsonResponse("Listings page; X-Total-Count carries the total",
				openapi3.NewSchemaRef("", openapi3.NewArraySchema().WithItems(listingSchema)))),
			openapi3.WithStatus(http.StatusBadRequest, jsonResponse("Invalid pagination", errorRef)),
		),
	}
	createOp := &openapi3.Operation{
		OperationID: "listings_create",
		Summary:     "Create a listing",
		Tags:        []string{"listings"},
		RequestBody: body,
		Responses: openapi3.NewResponses(
			openapi3.WithStatus(http.StatusCreated, jsonResponse("Created listing", listingRef)),
			openapi3.WithStatus(http.StatusBadRequest, jsonResponse("Validation failed", errorRef)),
		),
	}
	getOp := &openapi3.Operation{
		OperationID: "listings_read",
		Summary:     "Retrieve a listing",
		Tags:        []string{"listings"},
		Parameters:  openapi3.Parameters{idParam},
		Responses: openapi3.NewResponses(
			openapi3.WithStatus(http.StatusOK, jsonResponse("Listing", listingRef)),
			openapi3.WithStatus(http.StatusNotFound, jsonResponse("Unknown listing", errorRef)),
		),
	}
	updateResponses := func() *openapi3.Responses {
		return openapi3.NewResponses(
			openapi3.WithStatus(http.StatusOK, jsonResponse("Updated listing", listingRef)),
			openapi3.WithStatus(http.StatusBadRequest, jsonResponse("Validation failed", errorRef)),
			openapi3.WithStatus(http.StatusNotFound, jsonResponse("Unknown listing", errorRef)),
		)
	}
	putOp := &openapi3.Operation{
		OperationID: "listings_update",
		Summary:     "Replace a listing",
		Tags:        []string{"listings"},
		Parameters:  openapi3.Parameters{idParam},
		RequestBody: body,
		Responses:   updateResponses(),
	}
	patchOp := &openapi3.Operation{
		OperationID: "listings_partial_update",
		Summary:     "Update some fields of a listing",
		Tags:        []string{"listings"},
		Parameters:  openapi3.Parameters{idParam},
		RequestBody: &openapi3.RequestBodyRef{Value: openapi3.NewRequestBody().WithJSONSchemaRef(inputRef)},
		Responses:   updateResponses(),
	}
	deleteOp := &openapi3.Operation{
		OperationID: "listings_delete",
		Summary:     "Delete a listing",
		Tags:        []string{"listings"},
		Parameters:  openapi3.Parameters{idParam},
		Responses: openapi3.NewResponses(
			openapi3.WithStatus(http.StatusNoContent, &openapi3.ResponseRef{Value: openapi3.NewResponse().WithDescription("Deleted")}),
			openapi3.WithStatus(http.StatusNotFound, jsonResponse("Unknown listing", errorRef)),
		),
	}
	for _, op := range []*openapi3.Operation{listOp, createOp, getOp, putOp, patchOp, deleteOp} {
		op.Security = security
		if security != nil {
			op.AddResponse(http.StatusUnauthorized, openapi3.NewResponse().
				WithDescription("Missing or invalid bearer token").
				WithJSONSchemaRef(errorRef))
		}
	}

	healthOp := &openapi3.Operation{
		OperationID: "health",
		Summary:     "Service and database health",
		Tags:        []string{"health"},
		Responses: openapi3.NewResponses(
			openapi3.WithStatus(http.StatusOK, jsonResponse("Healthy", openapi3.NewSchemaRef("", healthSchema))),
			openapi3.WithStatus(http.StatusServiceUnavailable, jsonResponse("Database unavailable", openapi3.NewSchemaRef("", healthSchema))),
		),
	}

	return &openapi3.T{
		OpenAPI: "3.0.3",
		Info: &openapi3.Info{
			Title:       "ALX Travel API",
			Description: "Travel listings for the ALX travel app",
			Version:     "v1",
		},
		Tags: openapi3.Tags{
			{Name: "listings", Description: "Property listings"},
			{Name: "health", Description: "Operational status"},
		},
		Paths: openapi3.NewPaths(
			openapi3.WithPath("/api/health/", &openapi3.PathItem{Get: healthOp}),
			openapi3.WithPath("/api/listings/", &openapi3.PathItem{Get: listOp, Post: createOp}),
			openapi3.WithPath("/api/listings/{id}/", &openapi3.PathItem{
				Get:    getOp,
				Put:    putOp,
				Patch:  patchOp,
				Delete: deleteOp,
			}),
		),
		Components: &openapi3.Components{
			Schemas: openapi3.Schemas{
				"Listing":      &openapi3.SchemaRef{Value: listingSchema},
				"ListingInput": &openapi3.SchemaRef{Value: inputSchema},
				"Error":        &openapi3.SchemaRef{Value: errorSchema},
			},
			SecuritySchemes: openapi3.SecuritySchemes{
				bearerSchemeName: &openapi3.SecuritySchemeRef{Value: openapi3.NewJWTSecurityScheme()},
			},
		},
	}
}

// OpenAPIHandler serves doc as JSON. The document is encoded once.
func OpenAPIHandler(doc *openapi3.T) (http.Handler, error) {
	payload, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			writeError(w, http.StatusMethodNotAllowed, "Method not allowed", r.Method+" is not supported on this resource")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(payload)
	}), nil
}

func jsonResponse(description string, schema *openapi3.SchemaRef) *openapi3.ResponseRef {
	return &openapi3.ResponseRef{Value: openapi3.NewResponse().
		WithDescription(description).
		WithJSONSchemaRef(schema)}
}

func readOnly(schema *openapi3.Schema) *openapi3.Schema {
	schema.ReadOnly = true
	return schema
}
