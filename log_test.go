// Copyright (c) 2025 hitoshi.mukai.b@gmail.com. All rights reserved.
// You are free to use this source code for any purpose. The copyright remains with the author.
// The author accepts no liability for any damages arising from the use of this source code.
//
// Last modified: 2025.9.28
//

package goppp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func Test_epochLogger(t *testing.T) {
	assert := assert.New(t)
	core, logs := observer.New(zapcore.InfoLevel)
	l := newEpochLogger(zap.New(core), simT0)
	l.Debug("debug only in the buffer", zap.Int("n", 1))
	l.Info("both")

	// The base logger keeps its level, the buffer takes everything
	assert.Equal(1, logs.Len())
	entry := logs.All()[0]
	assert.Equal("both", entry.Message)
	assert.Equal(simT0.String(), entry.ContextMap()["epoch"])
	assert.Contains(l.Text(), "debug only in the buffer")
	assert.Contains(l.Text(), "both")
}

func Test_initLogger(t *testing.T) {
	assert := assert.New(t)
	defer SetLogger(nil)
	assert.Error(InitLogger("verbose"))
	assert.NoError(InitLogger("warn"))
	assert.False(L().Core().Enabled(zapcore.InfoLevel))
	assert.True(L().Core().Enabled(zapcore.ErrorLevel))
	SetLogger(nil)
	assert.False(L().Core().Enabled(zapcore.ErrorLevel))
}
