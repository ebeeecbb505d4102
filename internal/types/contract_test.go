package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type ContractTestSuite struct {
	suite.Suite
}

func TestContractSuite(t *testing.T) {
	suite.Run(t, new(ContractTestSuite))
}

func (suite *ContractTestSuite) TestFormatOptionSymbol() {
	expiry := time.Date(2023, 12, 15, 0, 0, 0, 0, time.UTC)

	suite.Equal("AAPL231215C00180000", FormatOptionSymbol("AAPL", expiry, OptionRightCall, 180))
	suite.Equal("AAPL231215P00180000", FormatOptionSymbol("AAPL", expiry, OptionRightPut, 180))
}

func (suite *ContractTestSuite) TestFormatOptionSymbolFractionalStrike() {
	expiry := time.Date(2024, 6, 21, 0, 0, 0, 0, time.UTC)

	suite.Equal("SPY240621C00452500", FormatOptionSymbol("SPY", expiry, OptionRightCall, 452.5))
}

func (suite *ContractTestSuite) TestFormatOptionSymbolLowercaseUnderlying() {
	expiry := time.Date(2024, 6, 21, 0, 0, 0, 0, time.UTC)

	suite.Equal("TSLA240621P00200000", FormatOptionSymbol("tsla", expiry, OptionRightPut, 200))
}

func (suite *ContractTestSuite) TestParseOptionSymbol() {
	contract, err := ParseOptionSymbol("AAPL231215C00180000")
	suite.NoError(err)
	suite.Equal("AAPL", contract.Underlying)
	suite.Equal(time.Date(2023, 12, 15, 0, 0, 0, 0, time.UTC), contract.Expiry)
	suite.Equal(OptionRightCall, contract.Right)
	suite.Equal(180.0, contract.Strike)
}

func (suite *ContractTestSuite) TestParseOptionSymbolRoundTrip() {
	expiry := time.Date(2024, 6, 21, 0, 0, 0, 0, time.UTC)
	symbol := FormatOptionSymbol("SPY", expiry, OptionRightPut, 452.5)

	contract, err := ParseOptionSymbol(symbol)
	suite.NoError(err)
	suite.Equal("SPY", contract.Underlying)
	suite.Equal(expiry, contract.Expiry)
	suite.Equal(OptionRightPut, contract.Right)
	suite.Equal(452.5, contract.Strike)
}

func (suite *ContractTestSuite) TestParseOptionSymbolTooShort() {
	_, err := ParseOptionSymbol("C00180000")
	suite.Error(err)
}

func (suite *ContractTestSuite) TestParseOptionSymbolBadRight() {
	_, err := ParseOptionSymbol("AAPL231215X00180000")
	suite.Error(err)
}

func (suite *ContractTestSuite) TestParseOptionSymbolBadStrike() {
	_, err := ParseOptionSymbol("AAPL231215C0018000x")
	suite.Error(err)
}

func (suite *ContractTestSuite) TestNextOptionExpiry() {
	// Tuesday -> same-week Friday
	tuesday := time.Date(2024, 3, 12, 15, 30, 0, 0, time.UTC)
	suite.Equal(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), NextOptionExpiry(tuesday))

	// Friday rolls to the following week
	friday := time.Date(2024, 3, 15, 10, 0, 0, 0, time.UTC)
	suite.Equal(time.Date(2024, 3, 22, 0, 0, 0, 0, time.UTC), NextOptionExpiry(friday))

	// Saturday -> next Friday
	saturday := time.Date(2024, 3, 16, 10, 0, 0, 0, time.UTC)
	suite.Equal(time.Date(2024, 3, 22, 0, 0, 0, 0, time.UTC), NextOptionExpiry(saturday))
}

func (suite *ContractTestSuite) TestSuggestedContract() {
	now := time.Date(2024, 3, 12, 15, 30, 0, 0, time.UTC)

	long := SuggestedContract("AAPL", DirectionLong, 179.6, now)
	suite.Equal("AAPL240315C00180000", long)

	short := SuggestedContract("AAPL", DirectionShort, 179.4, now)
	suite.Equal("AAPL240315P00179000", short)
}
