package domain

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrEmptyExchange    = errors.New("exchange name is empty")
	ErrEmptyAsset       = errors.New("asset symbol is empty")
	ErrNilLevels        = errors.New("price levels are nil")
	ErrEmptyPath        = errors.New("conversion path is empty")
	ErrNoChain          = errors.New("no consistent conversion chain")
	ErrUnknownAssetPair = errors.New("asset pair could not be resolved")
)
