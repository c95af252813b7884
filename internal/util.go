package internal

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
)

func Pprint(i interface{}) {
	bytes, err := json.MarshalIndent(i, "", "    ")
	if err != nil {
		panic(err)
	}
	fmt.Println(string(bytes))
}

type Secrets struct {
	ChatGPTApiKey    string        `json:"gpt"`
	ApiSigningSecret string        `json:"apiSigningSecret"`
	GateIo           GateIoSecrets `json:"gateio"`
	Alpaca           AlpacaSecrets `json:"alpaca"`
	Db               *DbSecrets    `json:"db,omitempty"`
	Trading          TradingConfig `json:"trading"`
}

type GateIoSecrets struct {
	ApiKey    string `json:"apiKey"`
	ApiSecret string `json:"apiSecret"`
	BaseUrl   string `json:"baseUrl"`
}

type AlpacaSecrets struct {
	ApiKey    string `json:"apiKey"`
	ApiSecret string `json:"apiSecret"`
	Endpoint  string `json:"endpoint"`
}

type DbSecrets struct {
	Host      string `json:"host"`
	User      string `json:"user"`
	Port      string `json:"port"`
	Password  string `json:"password"`
	Database  string `json:"database"`
	EnableSsl bool   `json:"enableSsl"`
}

func (t DbSecrets) ToConnectionStr() string {
	x := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s",
		t.Host, t.Port, t.User, t.Password, t.Database)
	if !t.EnableSsl {
		x += " sslmode=disable"
	}
	return x
}

// TradingConfig holds the recognized trading options. Zero values are
// replaced by ApplyDefaults, which mirrors the exchange's published
// floor ($3 min order) and the confirmation policy thresholds.
type TradingConfig struct {
	Broker                string          `json:"broker"` // gateio | alpaca
	QuoteAsset            string          `json:"quoteAsset"`
	MinOrderNotional      decimal.Decimal `json:"minOrderNotional"`
	MaxUnconfirmedSymbols int             `json:"maxUnconfirmedSymbols"`
	MaxUnconfirmedTotal   decimal.Decimal `json:"maxUnconfirmedTotal"`
	ContextTTLSeconds     int             `json:"contextTtlSeconds"`
	ConfirmationPolicy    string          `json:"confirmationPolicy"`
	DryRun                bool            `json:"dryRun"`
	JournalPath           string          `json:"journalPath"`
}

func (t TradingConfig) ApplyDefaults() TradingConfig {
	if t.Broker == "" {
		t.Broker = "gateio"
	}
	if t.QuoteAsset == "" {
		t.QuoteAsset = "USDT"
	}
	if t.MinOrderNotional.IsZero() {
		t.MinOrderNotional = decimal.NewFromInt(3)
	}
	if t.MaxUnconfirmedSymbols == 0 {
		t.MaxUnconfirmedSymbols = 3
	}
	if t.MaxUnconfirmedTotal.IsZero() {
		t.MaxUnconfirmedTotal = decimal.NewFromInt(50)
	}
	if t.ContextTTLSeconds == 0 {
		t.ContextTTLSeconds = 300
	}
	return t
}

func LoadSecrets() (*Secrets, error) {
	secretsFile := "secrets.json"
	if f := os.Getenv("TRADECHAT_SECRETS_FILE"); f != "" {
		secretsFile = f
	} else if os.Getenv("TRADECHAT_ENV") == "dev" {
		secretsFile = "secrets-dev.json"
	} else if os.Getenv("TRADECHAT_ENV") == "test" {
		secretsFile = "secrets-test.json"
	}
	f, err := os.ReadFile(secretsFile)
	if err != nil {
		return nil, fmt.Errorf("could not open %s: %w", secretsFile, err)
	}

	secrets := Secrets{}
	err = json.Unmarshal(f, &secrets)
	if err != nil {
		return nil, err
	}
	secrets.Trading = secrets.Trading.ApplyDefaults()

	return &secrets, nil
}
