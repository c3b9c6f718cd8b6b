// Package mocks holds mockgen output for the ports that service and HTTP tests stub out.
// Regenerate with "go generate ./internal/mocks" after changing one of those interfaces.
//
//	ctrl := gomock.NewController(t)
//	dir := mocks.NewMockMerchantDirectory(ctrl)
//	dir.EXPECT().GetByID(gomock.Any(), "m-1").Return(&merchant, nil)
package mocks

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=merchant_directory_mock.go github.com/pigbank/console-api/internal/ports MerchantDirectory
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=cache_repository_mock.go github.com/pigbank/console-api/internal/ports CacheRepository
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=view_storage_mock.go github.com/pigbank/console-api/internal/ports ViewStorage
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=identity_source_mock.go github.com/pigbank/console-api/internal/ports IdentitySource
//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -package=mocks -destination=data_fetcher_mock.go github.com/pigbank/console-api/internal/ports DataFetcher
