// Package docs provides generated OpenAPI documentation.
//
// Leaf API
//
//	@title			Leaf API
//	@version		1.0
//	@description	Read remote plain-text books chunk by chunk over mirrored HTTP range requests.
//	@termsOfService	http://swagger.io/terms/
//
//	@contact.name	API Support
//	@contact.url	https://github.com/jackzampolin/leaf
//
//	@license.name	MIT
//	@license.url	https://opensource.org/licenses/MIT
//
//	@host		localhost:8080
//	@BasePath	/
//
//	@schemes	http https
package docs

//go:generate swag init -g ../cmd/leaf/serve.go -o ./swagger --parseDependency --parseInternal
