package ledger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"MarketConcierge/internal/model"
)

// State is the persisted paper-trading ledger.
type State struct {
	Accounts  map[string]*AccountState `json:"accounts"`
	UpdatedAt time.Time                `json:"updated_at"`
}

// AccountState is one user's cash, positions and order history.
type AccountState struct {
	Balance      decimal.Decimal          `json:"balance"`
	Holdings     map[string]model.Holding `json:"holdings"`
	Transactions []model.Transaction      `json:"transactions"`
}

// LoadState reads the ledger from a JSON file. Returns an empty state if the file doesn't exist.
func LoadState(filePath string) (*State, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return &State{Accounts: map[string]*AccountState{}}, nil
		}
		return nil, err
	}
	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, err
	}
	if state.Accounts == nil {
		state.Accounts = map[string]*AccountState{}
	}
	for userID, a := range state.Accounts {
		if a == nil {
			delete(state.Accounts, userID)
			continue
		}
		if a.Holdings == nil {
			a.Holdings = map[string]model.Holding{}
		}
	}
	return &state, nil
}

// SaveState writes the ledger to a JSON file, replacing it atomically.
func SaveState(filePath string, state *State) error {
	state.UpdatedAt = time.Now()
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return err
	}
	tmp := filePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, filePath)
}
