/*
Package testutil provides shared test helpers for the oracle service.

# Overview

testutil gives every package's unit and benchmark tests a common set of
helpers so they don't each reimplement the same scaffolding.

# Core capabilities

  - Context helpers: TestContext / TestContextWithTimeout / CancelledContext,
    auto-registering Cleanup to avoid leaks
  - Assertions: AssertJSONEqual / AssertNoError / AssertError /
    AssertContains / AssertNotContains
  - Async assertions: AssertEventuallyTrue / AssertEventuallyEqual, polling
    with a timeout
  - Data helpers: MustJSON / MustParseJSON
  - Benchmark helper: BenchmarkHelper wraps common testing.B operations

# Subpackages

  - testutil/mocks: builder-style Provider mocks for exercising the fanout
    and consensus engines without live upstream calls

# Usage

	ctx := testutil.TestContext(t)
	p := mocks.NewMockProvider("coingecko").WithResponse(42000.0, 0.9)
	resp, err := p.Fetch(ctx, "btc price", oracle.Options{})
	testutil.AssertNoError(t, err)
*/
package testutil
