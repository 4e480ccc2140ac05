package http

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/geoquest/internal/core/domain"
)

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	metadataType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoMetadata",
		Fields: graphql.Fields{
			"id":            &graphql.Field{Type: graphql.String},
			"title":         &graphql.Field{Type: graphql.String},
			"description":   &graphql.Field{Type: graphql.String},
			"image_url":     &graphql.Field{Type: graphql.String},
			"latitude":      &graphql.Field{Type: graphql.Float},
			"longitude":     &graphql.Field{Type: graphql.Float},
			"radius":        &graphql.Field{Type: graphql.Int},
			"collection_id": &graphql.Field{Type: graphql.String},
			"distance":      &graphql.Field{Type: graphql.Float},
		},
	})

	eligibilityType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Eligibility",
		Fields: graphql.Fields{
			"metadata":          &graphql.Field{Type: metadataType},
			"location_eligible": &graphql.Field{Type: graphql.Boolean},
			"already_claimed":   &graphql.Field{Type: graphql.Boolean},
			"can_claim":         &graphql.Field{Type: graphql.Boolean},
			"distance_meters":   &graphql.Field{Type: graphql.Float},
			"radius_meters":     &graphql.Field{Type: graphql.Float},
			"reason":            &graphql.Field{Type: graphql.String},
		},
	})

	claimType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Claim",
		Fields: graphql.Fields{
			"id":           &graphql.Field{Type: graphql.String},
			"metadata_id":  &graphql.Field{Type: graphql.String},
			"user_address": &graphql.Field{Type: graphql.String},
			"claimed_at":   &graphql.Field{Type: graphql.DateTime},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"metadata": &graphql.Field{
				Type:        metadataType,
				Description: "Get a metadata instance by ID",
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Metadata.GetByID(p.Context, p.Args["id"].(string))
				},
			},
			"eligibility": &graphql.Field{
				Type:        eligibilityType,
				Description: "Check whether a user at a location may claim a quest",
				Args: graphql.FieldConfigArgument{
					"metadata_id":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"lat":          &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lon":          &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"user_address": &graphql.ArgumentConfig{Type: graphql.String, DefaultValue: ""},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					loc := domain.GeoPoint{Lat: p.Args["lat"].(float64), Lon: p.Args["lon"].(float64)}
					addr, _ := p.Args["user_address"].(string)
					return deps.Claims.EvaluateEligibility(p.Context, p.Args["metadata_id"].(string), loc, addr)
				},
			},
			"metadataNearby": &graphql.Field{
				Type:        graphql.NewList(metadataType),
				Description: "Find geofenced quests near a location",
				Args: graphql.FieldConfigArgument{
					"lat":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lon":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"radius": &graphql.ArgumentConfig{Type: graphql.Float, DefaultValue: 5000.0},
					"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 20},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					loc := domain.GeoPoint{Lat: p.Args["lat"].(float64), Lon: p.Args["lon"].(float64)}
					return deps.Metadata.FindNearby(p.Context, loc, p.Args["radius"].(float64), p.Args["limit"].(int))
				},
			},
		},
	})

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"commitClaim": &graphql.Field{
				Type:        claimType,
				Description: "Claim a quest NFT for a recipient; lat/lon are required for geofenced quests",
				Args: graphql.FieldConfigArgument{
					"metadata_id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"recipient":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"lat":         &graphql.ArgumentConfig{Type: graphql.Float},
					"lon":         &graphql.ArgumentConfig{Type: graphql.Float},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					var loc *domain.GeoPoint
					lat, hasLat := p.Args["lat"].(float64)
					lon, hasLon := p.Args["lon"].(float64)
					if hasLat && hasLon {
						loc = &domain.GeoPoint{Lat: lat, Lon: lon}
					} else if hasLat || hasLon {
						return nil, fmt.Errorf("%w: lat and lon must be given together", domain.ErrInvalidCoordinate)
					}
					res, err := deps.Claims.CommitClaim(p.Context, p.Args["metadata_id"].(string), p.Args["recipient"].(string), loc)
					if err != nil {
						return nil, err
					}
					return res.Claim, nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
