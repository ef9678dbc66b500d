package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/ceyewan/sinteflake/idgen"
	"github.com/ceyewan/sinteflake/xerrors"
)

type decodedID struct {
	ID idgen.ID `json:"id"`
	idgen.Parts
	Error string `json:"error,omitempty"`
}

func newDecodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode <id>...",
		Short: "Decode IDs with the configured key and layout",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			decoder, err := idgen.NewDecoder(&cfg.IDGen)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			var errs []error
			for _, arg := range args {
				id, err := idgen.ParseID(arg)
				if err != nil {
					errs = append(errs, err)
					continue
				}
				out := decodedID{ID: id}
				if out.Parts, err = decoder.Decode(id); err != nil {
					out.Error = xerrors.GetCode(err)
					errs = append(errs, xerrors.Wrapf(err, "decode %s", arg))
				}
				if err := enc.Encode(out); err != nil {
					return err
				}
			}
			return xerrors.Combine(errs...)
		},
	}
}
