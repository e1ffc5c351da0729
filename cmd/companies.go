package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/mock-interviewer/internal/questionbank"
)

var companiesCmd = &cobra.Command{
	Use:   "companies",
	Short: "List companies and their interview types",
	Run: func(cmd *cobra.Command, _ []string) {
		logger, config := setup()

		bank, err := questionbank.Load(config.QuestionBankFile)
		if err != nil {
			logger.Fatal("loading question bank", zap.Error(err))
		}

		for _, company := range bank.Companies() {
			types, err := bank.Types(company)
			if err != nil {
				logger.Fatal("listing interview types", zap.String("company", company), zap.Error(err))
			}

			names := make([]string, 0, len(types))
			for _, t := range types {
				names = append(names, t.String())
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", company, strings.Join(names, ", "))
		}
	},
}

func init() {
	rootCmd.AddCommand(companiesCmd)
}
