// Tensile Core
// Copyright (c) 2026 The Zaparoo Project Contributors.
// SPDX-License-Identifier: GPL-3.0-or-later
//
// This file is part of Tensile Core.
//
// Tensile Core is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Tensile Core is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with Tensile Core.  If not, see <http://www.gnu.org/licenses/>.

package methods

import (
	"encoding/base64"
	"fmt"
	"os"

	"github.com/ZaparooProject/tensile-core/pkg/api/models"
	"github.com/ZaparooProject/tensile-core/pkg/api/models/requests"
	"github.com/ZaparooProject/tensile-core/pkg/config"
	"github.com/ZaparooProject/tensile-core/pkg/helpers"
	"github.com/rs/zerolog/log"
)

// HandleLogsDownload returns the current log file base64 encoded. Only
// loopback clients may fetch it.
//
//nolint:gocritic // single-use parameter in API handler
func HandleLogsDownload(env requests.RequestEnv) (any, error) {
	if !env.IsLocal {
		return nil, fmt.Errorf("%w: logs are only available locally", ErrForbidden)
	}

	logFilePath := helpers.LogPath(env.Platform)
	data, err := os.ReadFile(logFilePath)
	if err != nil {
		log.Error().Err(err).Str("path", logFilePath).Msg("failed to read log file")
		return nil, fmt.Errorf("failed to read log file: %w", err)
	}

	return models.LogDownloadResponse{
		Filename: config.LogFile,
		Size:     len(data),
		Content:  base64.StdEncoding.EncodeToString(data),
	}, nil
}
