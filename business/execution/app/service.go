package app

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	arbDomain "github.com/fd1az/arbitrage-executor/business/arbitrage/domain"
	blockchainApp "github.com/fd1az/arbitrage-executor/business/blockchain/app"
	"github.com/fd1az/arbitrage-executor/business/execution/domain"
	"github.com/fd1az/arbitrage-executor/internal/apperror"
	"github.com/fd1az/arbitrage-executor/internal/logger"
)

const (
	tracerName = "github.com/fd1az/arbitrage-executor/business/execution/app"
	meterName  = "github.com/fd1az/arbitrage-executor/business/execution/app"
)

// ServiceConfig configures signing and inclusion polling.
type ServiceConfig struct {
	ChainID               *big.Int
	WithdrawToken         common.Address
	InclusionPollInterval time.Duration
	InclusionMaxPolls     int
}

type serviceMetrics struct {
	submitted metric.Int64Counter
	included  metric.Int64Counter
	polls     metric.Int64Histogram
}

// Service signs bundles, hands them to the configured Submitter and waits
// for inclusion. It never retries within a call.
type Service struct {
	chain     blockchainApp.ChainClient
	gas       blockchainApp.GasOracle
	submitter Submitter
	builder   *Builder
	key       *ecdsa.PrivateKey
	from      common.Address
	config    ServiceConfig
	logger    logger.LoggerInterface

	now     func() time.Time
	newID   func() string
	tracer  trace.Tracer
	metrics *serviceMetrics
}

// NewService creates an execution Service signing with key.
func NewService(
	chain blockchainApp.ChainClient,
	gas blockchainApp.GasOracle,
	submitter Submitter,
	builder *Builder,
	key *ecdsa.PrivateKey,
	cfg ServiceConfig,
	log logger.LoggerInterface,
) (*Service, error) {
	if cfg.InclusionMaxPolls <= 0 {
		cfg.InclusionMaxPolls = 1
	}
	s := &Service{
		chain:     chain,
		gas:       gas,
		submitter: submitter,
		builder:   builder,
		key:       key,
		from:      crypto.PubkeyToAddress(key.PublicKey),
		config:    cfg,
		logger:    log,
		now:       time.Now,
		newID:     uuid.NewString,
		tracer:    otel.Tracer(tracerName),
	}
	if err := s.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	return s, nil
}

func (s *Service) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	s.metrics = &serviceMetrics{}

	s.metrics.submitted, err = meter.Int64Counter(
		"bundles_submitted_total",
		metric.WithDescription("Bundles handed to a submitter"),
		metric.WithUnit("{bundle}"),
	)
	if err != nil {
		return err
	}

	s.metrics.included, err = meter.Int64Counter(
		"bundles_resolved_total",
		metric.WithDescription("Bundles by inclusion outcome"),
		metric.WithUnit("{bundle}"),
	)
	if err != nil {
		return err
	}

	s.metrics.polls, err = meter.Int64Histogram(
		"bundle_inclusion_polls",
		metric.WithDescription("Polls needed to resolve a bundle"),
		metric.WithUnit("{poll}"),
	)
	return err
}

// From returns the signing address.
func (s *Service) From() common.Address {
	return s.from
}

// Build encodes intent into a bundle.
func (s *Service) Build(intent arbDomain.TradeIntent) (domain.Bundle, error) {
	return s.builder.Build(intent)
}

// SignAndSubmit signs one EIP-1559 transaction per call with sequential
// nonces and identical fees, then submits them for block head+1. A bundle
// without a ReplacementID gets a fresh one.
func (s *Service) SignAndSubmit(ctx context.Context, bundle domain.Bundle) (*domain.PendingBundle, error) {
	if bundle.ReplacementID == "" {
		bundle.ReplacementID = s.newID()
	}
	ctx, span := s.tracer.Start(ctx, "execution.sign_and_submit",
		trace.WithAttributes(
			attribute.Int("calls", len(bundle.Calls)),
			attribute.String("submitter", s.submitter.Name()),
			attribute.String("replacement_id", bundle.ReplacementID),
		),
	)
	defer span.End()

	fail := func(err error) (*domain.PendingBundle, error) {
		s.metrics.submitted.Add(ctx, 1, metric.WithAttributes(
			attribute.String("submitter", s.submitter.Name()),
			attribute.String("outcome", string(apperror.GetCode(err))),
		))
		span.RecordError(err)
		span.SetStatus(codes.Error, "submission failed")
		return nil, err
	}

	if len(bundle.Calls) == 0 {
		return fail(apperror.New(apperror.CodeBundleEncodingFailed, apperror.WithContext("empty bundle")))
	}

	head, err := s.chain.BlockNumber(ctx)
	if err != nil {
		return fail(submissionErr("fetch head", err))
	}
	fees, err := s.gas.SuggestFees(ctx)
	if err != nil {
		return fail(submissionErr("fetch fees", err))
	}
	nonce, err := s.chain.PendingNonceAt(ctx, s.from)
	if err != nil {
		return fail(submissionErr("fetch nonce", err))
	}

	signer := types.LatestSignerForChainID(s.config.ChainID)
	txs := make([]*types.Transaction, 0, len(bundle.Calls))
	hashes := make([]common.Hash, 0, len(bundle.Calls))
	for i, call := range bundle.Calls {
		to := call.To
		tx, err := types.SignNewTx(s.key, signer, &types.DynamicFeeTx{
			ChainID:   s.config.ChainID,
			Nonce:     nonce + uint64(i),
			GasTipCap: fees.TipCap,
			GasFeeCap: fees.FeeCap,
			Gas:       s.gasLimit(ctx, i, call),
			To:        &to,
			Data:      call.Data,
		})
		if err != nil {
			return fail(apperror.New(apperror.CodeRelaySubmissionFailed,
				apperror.WithCause(apperror.New(apperror.CodeSigningFailed, apperror.WithCause(err))),
				apperror.WithContext(fmt.Sprintf("sign call %d (%s)", i, call.Kind))))
		}
		txs = append(txs, tx)
		hashes = append(hashes, tx.Hash())
	}

	target := head + 1
	res, err := s.submitter.Submit(ctx, txs, target, bundle.ReplacementID)
	if err != nil {
		if apperror.HasCode(err, apperror.CodeBundleRejected) {
			return fail(err)
		}
		return fail(submissionErr(s.submitter.Name()+" submit", err))
	}

	pending := &domain.PendingBundle{
		Bundle:      bundle,
		Txs:         txs,
		TxHashes:    hashes,
		BundleHash:  res.BundleHash,
		TargetBlock: target,
		TargetBound: res.TargetBound,
		FeeCap:      fees.FeeCap,
		TipCap:      fees.TipCap,
		SubmittedAt: s.now(),
		Submitter:   s.submitter.Name(),
	}

	s.metrics.submitted.Add(ctx, 1, metric.WithAttributes(
		attribute.String("submitter", s.submitter.Name()),
		attribute.String("outcome", "submitted"),
	))
	span.SetAttributes(
		attribute.Int64("target_block", int64(target)),
		attribute.String("bundle_hash", res.BundleHash),
	)
	span.SetStatus(codes.Ok, "submitted")
	s.logger.Info(ctx, "bundle submitted",
		"submitter", s.submitter.Name(),
		"target_block", target,
		"bundle_hash", res.BundleHash,
		"txs", len(txs),
		"first_tx", hashes[0].Hex(),
	)
	return pending, nil
}

// gasLimit estimates the first call only. Later calls run against state the
// first call creates, so their configured limit is used as is.
func (s *Service) gasLimit(ctx context.Context, index int, call domain.Call) uint64 {
	if index > 0 {
		return call.GasLimit
	}
	to := call.To
	gas, err := s.gas.EstimateGas(ctx, ethereum.CallMsg{From: s.from, To: &to, Data: call.Data})
	if err != nil || gas == 0 {
		s.logger.Warn(ctx, "gas estimation failed, using fallback limit",
			"call", string(call.Kind), "fallback", call.GasLimit, "error", err)
		return call.GasLimit
	}
	return gas
}

// AwaitInclusion polls until every transaction of the bundle has a receipt.
// A reverted transaction is CodeBundleRejected. Running out of polls, or a
// target-bound bundle whose block has passed, is CodeBundleTimeout.
func (s *Service) AwaitInclusion(ctx context.Context, pending *domain.PendingBundle) (arbDomain.ExecutionReceipt, error) {
	ctx, span := s.tracer.Start(ctx, "execution.await_inclusion",
		trace.WithAttributes(
			attribute.Int64("target_block", int64(pending.TargetBlock)),
			attribute.String("first_tx", pending.TxHashes[0].Hex()),
		),
	)
	defer span.End()

	resolve := func(outcome string, polls int) {
		s.metrics.included.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
		s.metrics.polls.Record(ctx, int64(polls))
		span.SetAttributes(attribute.Int("polls", polls), attribute.String("outcome", outcome))
	}

	ticker := time.NewTicker(s.config.InclusionPollInterval)
	defer ticker.Stop()

	for poll := 1; ; poll++ {
		receipts, ok := s.lookupReceipts(ctx, pending)
		if !ok && pending.TargetBound {
			if head, err := s.chain.BlockNumber(ctx); err == nil && head > pending.TargetBlock {
				// the receipt may have been indexed between the two lookups
				if receipts, ok = s.lookupReceipts(ctx, pending); !ok {
					resolve("target_passed", poll)
					err := apperror.New(apperror.CodeBundleTimeout,
						apperror.WithContext(fmt.Sprintf("target block %d passed at head %d", pending.TargetBlock, head)))
					span.RecordError(err)
					span.SetStatus(codes.Error, "not included")
					return arbDomain.ExecutionReceipt{}, err
				}
			}
		}

		if ok {
			receipt, err := s.toReceipt(ctx, pending, receipts)
			if err != nil {
				resolve("reverted", poll)
				span.RecordError(err)
				span.SetStatus(codes.Error, "reverted")
				return arbDomain.ExecutionReceipt{}, err
			}
			resolve("included", poll)
			span.SetStatus(codes.Ok, "included")
			return receipt, nil
		}

		if poll >= s.config.InclusionMaxPolls {
			resolve("timeout", poll)
			err := apperror.New(apperror.CodeBundleTimeout,
				apperror.WithContext(fmt.Sprintf("not included after %d polls", poll)))
			span.RecordError(err)
			span.SetStatus(codes.Error, "timeout")
			return arbDomain.ExecutionReceipt{}, err
		}

		select {
		case <-ctx.Done():
			return arbDomain.ExecutionReceipt{}, apperror.New(apperror.CodeBundleTimeout,
				apperror.WithCause(ctx.Err()), apperror.WithContext("cancelled while awaiting inclusion"))
		case <-ticker.C:
		}
	}
}

// lookupReceipts returns all receipts, or false while any is missing.
func (s *Service) lookupReceipts(ctx context.Context, pending *domain.PendingBundle) ([]*types.Receipt, bool) {
	receipts := make([]*types.Receipt, 0, len(pending.TxHashes))
	for _, h := range pending.TxHashes {
		r, err := s.chain.TransactionReceipt(ctx, h)
		if err != nil {
			s.logger.Debug(ctx, "receipt lookup failed", "tx", h.Hex(), "error", err)
			return nil, false
		}
		if r == nil {
			return nil, false
		}
		receipts = append(receipts, r)
	}
	return receipts, true
}

func (s *Service) toReceipt(ctx context.Context, pending *domain.PendingBundle, receipts []*types.Receipt) (arbDomain.ExecutionReceipt, error) {
	out := arbDomain.ExecutionReceipt{
		TxHashes: append([]common.Hash(nil), pending.TxHashes...),
		Success:  true,
	}

	for i, r := range receipts {
		if r.Status != types.ReceiptStatusSuccessful {
			return arbDomain.ExecutionReceipt{}, apperror.New(apperror.CodeBundleRejected,
				apperror.WithContext(fmt.Sprintf("%s tx %s reverted in block %s",
					pending.Bundle.Calls[i].Kind, r.TxHash.Hex(), r.BlockNumber)))
		}
		out.GasUsed += r.GasUsed
	}

	first := receipts[0]
	if first.EffectiveGasPrice != nil {
		out.EffectiveGasPrice = new(big.Int).Set(first.EffectiveGasPrice)
	} else {
		out.EffectiveGasPrice = new(big.Int)
	}
	if first.BlockNumber != nil {
		out.BlockNumber = first.BlockNumber.Uint64()
	}

	for _, r := range receipts[1:] {
		if r.EffectiveGasPrice != nil && r.EffectiveGasPrice.Cmp(out.EffectiveGasPrice) != 0 {
			s.logger.Warn(ctx, "bundle transactions paid different gas prices",
				"first", out.EffectiveGasPrice.String(), "other", r.EffectiveGasPrice.String(), "tx", r.TxHash.Hex())
		}
	}

	s.logger.Info(ctx, "bundle included",
		"block", out.BlockNumber,
		"gas_used", out.GasUsed,
		"effective_gas_price", out.EffectiveGasPrice.String(),
	)
	return out, nil
}

// Execute builds, submits and awaits one trade bundle.
func (s *Service) Execute(ctx context.Context, intent arbDomain.TradeIntent) (arbDomain.ExecutionReceipt, error) {
	bundle, err := s.builder.Build(intent)
	if err != nil {
		return arbDomain.ExecutionReceipt{}, err
	}
	pending, err := s.SignAndSubmit(ctx, bundle)
	if err != nil {
		return arbDomain.ExecutionReceipt{}, err
	}
	return s.AwaitInclusion(ctx, pending)
}

// Withdraw sends a withdraw-only bundle moving the contract's token balance
// to the owner.
func (s *Service) Withdraw(ctx context.Context) (arbDomain.ExecutionReceipt, error) {
	bundle, err := s.builder.BuildWithdraw(s.config.WithdrawToken)
	if err != nil {
		return arbDomain.ExecutionReceipt{}, err
	}
	pending, err := s.SignAndSubmit(ctx, bundle)
	if err != nil {
		return arbDomain.ExecutionReceipt{}, err
	}
	return s.AwaitInclusion(ctx, pending)
}

func submissionErr(step string, err error) error {
	return apperror.New(apperror.CodeRelaySubmissionFailed,
		apperror.WithCause(err),
		apperror.WithContext(step))
}
