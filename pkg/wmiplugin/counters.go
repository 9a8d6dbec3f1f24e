// Unless explicitly stated otherwise all files in this repository are licensed
// under the Apache License Version 2.0.
// Copyright 2026-present smartagent authors.

// Package wmiplugin implements the WMI counter algebra: the
// Windows Performance Data Helper formulae for each counter-type variant
// (raw, fraction, bulk average, 100ns timer, multi-timer, queue-length,
// elapsed-time), routed through the shared counterstore.Store.
package wmiplugin

import (
	"strconv"
	"strings"
	"time"

	"github.com/smartagent/agent/pkg/agenterror"
	"github.com/smartagent/agent/pkg/counterstore"
	"github.com/smartagent/agent/pkg/value"
)

// CounterType names one PERF_* counter-type variant.
type CounterType string

const (
	CounterText                 CounterType = "PERF_COUNTER_TEXT"
	CounterRawcount             CounterType = "PERF_COUNTER_RAWCOUNT"
	CounterLargeRawcount        CounterType = "PERF_COUNTER_LARGE_RAWCOUNT"
	CounterRawFraction          CounterType = "PERF_RAW_FRACTION"
	CounterLargeRawFraction     CounterType = "PERF_LARGE_RAW_FRACTION"
	CounterSampleFraction       CounterType = "PERF_SAMPLE_FRACTION"
	CounterDelta                CounterType = "PERF_COUNTER_DELTA"
	CounterLargeDelta           CounterType = "PERF_COUNTER_LARGE_DELTA"
	CounterElapsedTime          CounterType = "PERF_ELAPSED_TIME"
	CounterAverageBulk          CounterType = "PERF_AVERAGE_BULK"
	CounterSampleCounter        CounterType = "PERF_SAMPLE_COUNTER"
	CounterCounterCounter       CounterType = "PERF_COUNTER_COUNTER"
	CounterBulkCount            CounterType = "PERF_COUNTER_BULK_COUNT"
	CounterPrecisionSystemTimer CounterType = "PERF_PRECISION_SYSTEM_TIMER"
	CounterPrecision100nsTimer  CounterType = "PERF_PRECISION_100NS_TIMER"
	CounterPrecisionObjectTimer CounterType = "PERF_PRECISION_OBJECT_TIMER"
	CounterQueuelenType         CounterType = "PERF_COUNTER_QUEUELEN_TYPE"
	CounterLargeQueuelenType    CounterType = "PERF_COUNTER_LARGE_QUEUELEN_TYPE"
	Counter100nsQueuelenType    CounterType = "PERF_COUNTER_100NS_QUEUELEN_TYPE"
	CounterObjTimeQueuelenType  CounterType = "PERF_COUNTER_OBJ_TIME_QUEUELEN_TYPE"
	CounterTimer                CounterType = "PERF_COUNTER_TIMER"
	CounterTimerInv             CounterType = "PERF_COUNTER_TIMER_INV"
	CounterAverageTimer         CounterType = "PERF_AVERAGE_TIMER"
	Counter100secTimer          CounterType = "PERF_100NSEC_TIMER"
	Counter100secTimerInv       CounterType = "PERF_100NSEC_TIMER_INV"
	CounterMultiTimer           CounterType = "PERF_COUNTER_MULTI_TIMER"
	Counter100nsecMultiTimer    CounterType = "PERF_100NSEC_MULTI_TIMER"
	CounterObjTimeTimer         CounterType = "PERF_OBJ_TIME_TIMER"
)

// counterVariables lists the companion fields every timer/queue-length
// formula needs.
var counterVariables = []string{
	"Frequency_PerfTime", "Frequency_Sys100NS", "Frequency_Object",
	"Timestamp_PerfTime", "Timestamp_Sys100NS", "Timestamp_Object",
}

// Metadata is the decoded companion-field bundle (PDH frequencies and
// timestamps co-fetched with every counter query).
type Metadata struct {
	FreqTime, FreqSyn, FreqObj uint64
	TsTime, TsSyn, TsObj       uint64
}

// NewMetadata extracts the counterVariables from instance, defaulting
// frequencies to 1 and timestamps to now when absent (mssql exposes no
// perf metadata).
func NewMetadata(instance map[string]string, now time.Time) (Metadata, error) {
	get := func(key string) (uint64, error) {
		raw, ok := instance[key]
		if !ok {
			if strings.Contains(key, "Timestamp") {
				return uint64(now.Unix()), nil
			}
			return 1, nil
		}
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return 0, agenterror.Named(agenterror.KindTypeError, key)
		}
		return v, nil
	}
	var m Metadata
	var err error
	if m.FreqTime, err = get(counterVariables[0]); err != nil {
		return m, err
	}
	if m.FreqSyn, err = get(counterVariables[1]); err != nil {
		return m, err
	}
	if m.FreqObj, err = get(counterVariables[2]); err != nil {
		return m, err
	}
	if m.TsTime, err = get(counterVariables[3]); err != nil {
		return m, err
	}
	if m.TsSyn, err = get(counterVariables[4]); err != nil {
		return m, err
	}
	if m.TsObj, err = get(counterVariables[5]); err != nil {
		return m, err
	}
	return m, nil
}

// requiresBase lists the counter types whose companion "<property>_Base"
// column is required.
var requiresBase = map[CounterType]bool{
	CounterRawFraction: true, CounterLargeRawFraction: true, CounterSampleFraction: true,
	CounterAverageBulk: true, CounterMultiTimer: true, Counter100nsecMultiTimer: true,
	CounterAverageTimer: true,
}

// RequiresBase reports whether ct needs a companion "<property>_Base"
// instance column co-fetched alongside property.
func RequiresBase(ct CounterType) bool { return requiresBase[ct] }

// counterBase finds "<property>_Base" (or mssql's "<property> base"
// spelling) in instance.
func counterBase(property string, instance map[string]string) (int64, error) {
	if raw, ok := instance[property+"_Base"]; ok {
		return strconv.ParseInt(raw, 10, 64)
	}
	if raw, ok := instance[property+" base"]; ok {
		return strconv.ParseInt(raw, 10, 64)
	}
	return 0, agenterror.New(agenterror.KindMissing)
}

// Evaluate decodes one (base_key, property) sample of type ct into a
// Value, consulting store for any stateful rate/delta law.
func Evaluate(ct CounterType, baseKey, property string, instance map[string]string, store *counterstore.Store, now time.Time) (value.Value, error) {
	raw, ok := instance[property]
	if !ok {
		return value.Value{}, agenterror.New(agenterror.KindMissing)
	}
	key := baseKey + "_" + property
	meta, err := NewMetadata(instance, now)
	if err != nil {
		return value.Value{}, err
	}

	switch ct {
	case CounterText:
		return value.NewUnicodeString(raw), nil

	case CounterRawFraction, CounterLargeRawFraction:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return value.Value{}, agenterror.Named(agenterror.KindTypeError, key)
		}
		base, err := counterBase(property, instance)
		if err != nil {
			return value.Value{}, err
		}
		return value.NewFloat(f / float64(base)), nil

	case CounterSampleFraction:
		v, err := parseInt(key, raw)
		if err != nil {
			return value.Value{}, err
		}
		base, err := counterBase(property, instance)
		if err != nil {
			return value.Value{}, err
		}
		rate, err := store.Rate(key, uint64(v), uint64(base), now)
		if err != nil {
			return value.Value{}, asDataErr(err)
		}
		return value.NewFloat(rate), nil

	case CounterDelta, CounterLargeDelta:
		v, err := parseInt(key, raw)
		if err != nil {
			return value.Value{}, err
		}
		delta, _, err := store.Difference(key, uint64(v), now)
		if err != nil {
			return value.Value{}, asDataErr(err)
		}
		return value.NewInteger(int64(delta)), nil

	case CounterElapsedTime:
		v, err := parseInt(key, raw)
		if err != nil {
			return value.Value{}, err
		}
		if meta.FreqObj == 0 {
			return value.Value{}, agenterror.New(agenterror.KindDivisionByZero)
		}
		return value.NewFloat(float64((meta.TsObj - uint64(v)) / meta.FreqObj)), nil

	case CounterAverageBulk:
		v, err := parseInt(key, raw)
		if err != nil {
			return value.Value{}, err
		}
		base, err := counterBase(property, instance)
		if err != nil {
			return value.Value{}, err
		}
		rate, err := store.Rate(key, uint64(v), uint64(base), now)
		if err != nil {
			return value.Value{}, asDataErr(err)
		}
		return value.NewFloat(rate), nil

	case CounterSampleCounter, CounterCounterCounter, CounterBulkCount:
		return rateAgainst(key, raw, meta.TsTime/max1(meta.FreqTime), store, now, 1)

	case CounterPrecisionSystemTimer:
		return rateAgainst(key, raw, meta.TsTime, store, now, 1)
	case CounterPrecision100nsTimer:
		return rateAgainst(key, raw, meta.TsSyn, store, now, 100)
	case CounterPrecisionObjectTimer:
		return rateAgainst(key, raw, meta.TsObj, store, now, 1)

	case CounterQueuelenType, CounterLargeQueuelenType:
		return rateAgainst(key, raw, meta.TsTime, store, now, 1)
	case Counter100nsQueuelenType:
		return rateAgainst(key, raw, meta.TsSyn, store, now, 100)
	case CounterObjTimeQueuelenType:
		return rateAgainst(key, raw, meta.TsObj, store, now, 1)

	case CounterTimer:
		return rateAgainst(key, raw, meta.TsTime, store, now, 1)
	case CounterTimerInv:
		v, err := parseInt(key, raw)
		if err != nil {
			return value.Value{}, err
		}
		rate, err := store.Rate(key, uint64(v), meta.TsTime, now)
		if err != nil {
			return value.Value{}, asDataErr(err)
		}
		return value.NewFloat(100 * (1 - rate)), nil

	case CounterAverageTimer:
		v, err := parseInt(key, raw)
		if err != nil {
			return value.Value{}, err
		}
		if meta.FreqTime == 0 {
			return value.Value{}, agenterror.New(agenterror.KindDivisionByZero)
		}
		rate, err := store.Rate(key, meta.TsTime/meta.FreqTime, uint64(v), now)
		if err != nil {
			return value.Value{}, asDataErr(err)
		}
		return value.NewFloat(rate), nil

	case Counter100secTimer:
		return rateAgainst(key, raw, meta.TsSyn, store, now, 100)
	case Counter100secTimerInv:
		v, err := parseInt(key, raw)
		if err != nil {
			return value.Value{}, err
		}
		rate, err := store.Rate(key, uint64(v), meta.TsSyn, now)
		if err != nil {
			return value.Value{}, asDataErr(err)
		}
		return value.NewFloat(100 * (1 - rate)), nil

	case CounterMultiTimer, Counter100nsecMultiTimer:
		v, err := parseInt(key, raw)
		if err != nil {
			return value.Value{}, err
		}
		base, err := counterBase(property, instance)
		if err != nil {
			return value.Value{}, err
		}
		rate, err := store.Rate(key, uint64(v), uint64(base), now)
		if err != nil {
			return value.Value{}, asDataErr(err)
		}
		return value.NewFloat(100 * rate), nil

	case CounterObjTimeTimer:
		return rateAgainst(key, raw, meta.TsObj, store, now, 1)

	default:
		v, err := parseInt(key, raw)
		if err != nil {
			return value.Value{}, err
		}
		return value.NewInteger(v), nil
	}
}

func rateAgainst(key, raw string, base uint64, store *counterstore.Store, now time.Time, scale float64) (value.Value, error) {
	v, err := parseInt(key, raw)
	if err != nil {
		return value.Value{}, err
	}
	rate, err := store.Rate(key, uint64(v), base, now)
	if err != nil {
		return value.Value{}, asDataErr(err)
	}
	return value.NewFloat(rate * scale), nil
}

func max1(v uint64) uint64 {
	if v == 0 {
		return 1
	}
	return v
}

func parseInt(key, raw string) (int64, error) {
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, agenterror.Named(agenterror.KindTypeError, key)
	}
	return v, nil
}

func asDataErr(err error) error {
	if de, ok := err.(*agenterror.DataError); ok {
		return de
	}
	return agenterror.Wrap(agenterror.KindValueError, err)
}
