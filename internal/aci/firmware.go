package aci

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

var (
	filenameAttrs     = []string{"fwName", "fileName", "fullVersion"}
	checksumAttrs     = []string{"checksum", "md5sum", "md5"}
	repoVersionAttrs  = []string{"version", "fwVersion", "name"}
	repoFilenameAttrs = []string{"fileName", "fwName", "name", "fullName"}
	repoChecksumAttrs = []string{"checksum", "md5sum", "md5", "digest"}
)

// firstAttr 返回 names 中第一个存在且有意义的属性值。
func firstAttr(obj ApicObject, names []string, accept func(string) bool) string {
	for _, name := range names {
		if !obj.Has(name) {
			continue
		}
		v := obj.Attr(name)
		switch strings.ToLower(v) {
		case "", "none":
			continue
		}
		if accept != nil && !accept(v) {
			continue
		}
		return v
	}
	return ""
}

func looksLikeImage(v string) bool {
	return strings.Contains(v, ".") || strings.Contains(strings.ToLower(v), "aci")
}

// FirmwareDetails 汇总固件版本的镜像文件名与校验和，键为版本号。
// 各固件类均为可选，查询失败只记录调试日志。
func (r *Reader) FirmwareDetails(ctx context.Context) (map[string]Firmware, error) {
	out := make(map[string]Firmware)

	running := func(class, typ string) {
		for _, fw := range r.optional(ctx, class) {
			version := fw.Attr("version")
			if version == "" {
				continue
			}
			entry, ok := out[version]
			if !ok {
				entry = Firmware{Version: version, Type: typ}
			}
			if v := firstAttr(fw, filenameAttrs, nil); v != "" {
				entry.Filename = v
			}
			if v := firstAttr(fw, checksumAttrs, nil); v != "" {
				entry.Checksum = v
			}
			if v := fw.Attr("internalLabel"); v != "" {
				entry.InternalLabel = v
			}
			if dn := fw.Dn(); dn != "" {
				entry.NodeDn = dn
			}
			if typ == "switch" || entry.Type == "" {
				entry.Type = typ
			}
			out[version] = entry
		}
	}
	running("firmwareRunning", "switch")
	running("firmwareCtrlrRunning", "controller")

	for _, fw := range r.optional(ctx, "firmwareFirmware") {
		version := firstAttr(fw, repoVersionAttrs, nil)
		if version == "" {
			continue
		}
		filename := firstAttr(fw, repoFilenameAttrs, looksLikeImage)
		checksum := firstAttr(fw, repoChecksumAttrs, nil)
		entry, ok := out[version]
		if !ok {
			out[version] = Firmware{Version: version, Filename: filename, Checksum: checksum, Type: "staged"}
			continue
		}
		if filename != "" {
			entry.Filename = filename
		}
		if checksum != "" {
			entry.Checksum = checksum
		}
		out[version] = entry
	}

	for _, fw := range r.optional(ctx, "firmwareCompRunning") {
		entry, ok := out[fw.Attr("version")]
		if !ok || entry.Checksum != "" {
			continue
		}
		if v := firstAttr(fw, checksumAttrs, nil); v != "" {
			entry.Checksum = v
			out[entry.Version] = entry
		}
	}

	withFile, withSum := 0, 0
	for _, fw := range out {
		if fw.Filename != "" {
			withFile++
		}
		if fw.Checksum != "" {
			withSum++
		}
	}
	r.logger.Info("firmware details collected",
		zap.Int("versions", len(out)),
		zap.Int("with_filename", withFile),
		zap.Int("with_checksum", withSum))
	return out, nil
}
